// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paiban/roomassign/pkg/report"
	"github.com/paiban/roomassign/pkg/validator"
)

// 指标名称
const (
	HTTPRequestsTotal    = "roomassign_http_requests_total"
	HTTPRequestDuration  = "roomassign_http_request_duration_seconds"
	ActiveRequests       = "roomassign_active_requests"
	OperationsTotal      = "roomassign_operations_total"
	OperationDuration    = "roomassign_operation_duration_seconds"
	OptimizerGenerations = "roomassign_optimizer_generations_total"
	AssignmentConflicts  = "roomassign_conflicts"
	AssignmentQuality    = "roomassign_quality_score"
	HotelOccupancyRate   = "roomassign_hotel_occupancy_rate"
	OccupancyGini        = "roomassign_occupancy_gini"
	DBConnections        = "roomassign_db_connections"
)

// MetricsRegistry 指标注册表
type MetricsRegistry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *MetricsRegistry
	once     sync.Once
)

// NewRegistry 创建带默认指标的注册表
func NewRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.registerDefaults()
	return r
}

// GetRegistry 获取全局注册表
func GetRegistry() *MetricsRegistry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

// registerDefaults 初始化默认指标
func (r *MetricsRegistry) registerDefaults() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})
	r.NewGauge(ActiveRequests, "当前处理中的请求数", []string{})

	r.NewCounter(OperationsTotal, "分房操作次数", []string{"operation", "status"})
	r.NewHistogram(OperationDuration, "分房操作耗时",
		[]string{"operation"},
		[]float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0})
	r.NewCounter(OptimizerGenerations, "优化器累计迭代代数", []string{})

	r.NewGauge(AssignmentConflicts, "最近一次报告的冲突数", []string{"severity"})
	r.NewGauge(AssignmentQuality, "最近一次报告的方案质量分", []string{})
	r.NewGauge(HotelOccupancyRate, "最近一次报告的酒店入住率", []string{"hotel_id"})
	r.NewGauge(OccupancyGini, "酒店入住率基尼系数", []string{})

	r.NewGauge(DBConnections, "数据库连接数", []string{"state"})
}

// NewCounter 创建计数器
func (r *MetricsRegistry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *MetricsRegistry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *MetricsRegistry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *MetricsRegistry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *MetricsRegistry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *MetricsRegistry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Inc 增加
func (g *Gauge) Inc(labelValues ...string) {
	g.Add(1, labelValues...)
}

// Dec 减少
func (g *Gauge) Dec(labelValues ...string) {
	g.Add(-1, labelValues...)
}

// Add 增加指定值
func (g *Gauge) Add(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Reset 清空所有标签值
func (g *Gauge) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = make(map[string]float64)
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}

	// 非累计计数，输出时再累加
	placed := false
	for i, bucket := range h.Buckets {
		if value <= bucket {
			h.counts[key][i]++
			placed = true
			break
		}
	}
	if !placed {
		h.counts[key][len(h.Buckets)]++
	}
	h.sums[key] += value
}

// Count 观测次数
func (h *Histogram) Count(labelValues ...string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, n := range h.counts[labelKey(labelValues)] {
		total += n
	}
	return total
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, ",")
}

// Handler 返回全局注册表的 Prometheus 格式处理器
func Handler() http.Handler {
	return GetRegistry().Handler()
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.Write(w)
	})
}

// Write 按名称顺序输出全部指标
func (r *MetricsRegistry) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		counter := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n", counter.Name, counter.Help)
		fmt.Fprintf(w, "# TYPE %s counter\n", counter.Name)
		counter.mu.RLock()
		for _, key := range sortedKeys(counter.values) {
			fmt.Fprintf(w, "%s%s %s\n", counter.Name, braces(formatLabels(counter.Labels, key)), formatFloat(counter.values[key]))
		}
		counter.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.gauges) {
		gauge := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n", gauge.Name, gauge.Help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", gauge.Name)
		gauge.mu.RLock()
		for _, key := range sortedKeys(gauge.values) {
			fmt.Fprintf(w, "%s%s %s\n", gauge.Name, braces(formatLabels(gauge.Labels, key)), formatFloat(gauge.values[key]))
		}
		gauge.mu.RUnlock()
	}

	for _, name := range sortedKeys(r.histograms) {
		histogram := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n", histogram.Name, histogram.Help)
		fmt.Fprintf(w, "# TYPE %s histogram\n", histogram.Name)

		histogram.mu.RLock()
		for _, key := range sortedKeys(histogram.counts) {
			counts := histogram.counts[key]
			labels := formatLabels(histogram.Labels, key)
			prefix := ""
			if labels != "" {
				prefix = labels + ","
			}
			cumulative := 0
			for i, bucket := range histogram.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(w, "%s_bucket{%sle=\"%s\"} %d\n", histogram.Name, prefix, formatFloat(bucket), cumulative)
			}
			cumulative += counts[len(histogram.Buckets)]
			fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", histogram.Name, prefix, cumulative)
			fmt.Fprintf(w, "%s_sum%s %s\n", histogram.Name, braces(labels), formatFloat(histogram.sums[key]))
			fmt.Fprintf(w, "%s_count%s %d\n", histogram.Name, braces(labels), cumulative)
		}
		histogram.mu.RUnlock()
	}
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	vals := strings.Split(key, ",")
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

func braces(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecordRequestMetrics 记录请求指标
func RecordRequestMetrics(method, path string, status int, duration time.Duration) {
	GetRegistry().RecordRequest(method, path, status, duration)
}

// RecordRequest 记录请求指标
func (r *MetricsRegistry) RecordRequest(method, path string, status int, duration time.Duration) {
	if counter := r.GetCounter(HTTPRequestsTotal); counter != nil {
		counter.Inc(method, path, strconv.Itoa(status))
	}
	if histogram := r.GetHistogram(HTTPRequestDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), method, path)
	}
}

// RecordOperation 记录分房操作指标
func RecordOperation(operation string, success bool, duration time.Duration) {
	GetRegistry().RecordOperation(operation, success, duration)
}

// RecordOperation 记录分房操作指标
func (r *MetricsRegistry) RecordOperation(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	if counter := r.GetCounter(OperationsTotal); counter != nil {
		counter.Inc(operation, status)
	}
	if histogram := r.GetHistogram(OperationDuration); histogram != nil {
		histogram.Observe(duration.Seconds(), operation)
	}
}

// RecordOptimizerGenerations 累加优化器迭代代数
func RecordOptimizerGenerations(generations int) {
	GetRegistry().RecordOptimizerGenerations(generations)
}

// RecordOptimizerGenerations 累加优化器迭代代数
func (r *MetricsRegistry) RecordOptimizerGenerations(generations int) {
	if counter := r.GetCounter(OptimizerGenerations); counter != nil {
		counter.Add(float64(generations))
	}
}

// ObserveReport 用详细报告更新方案质量类指标
func ObserveReport(d *report.DetailedReport) {
	GetRegistry().ObserveReport(d)
}

// ObserveReport 用详细报告更新方案质量类指标
func (r *MetricsRegistry) ObserveReport(d *report.DetailedReport) {
	if d == nil || d.Report == nil {
		return
	}
	if gauge := r.GetGauge(AssignmentQuality); gauge != nil {
		gauge.Set(float64(d.Report.QualityScore))
	}
	if gauge := r.GetGauge(OccupancyGini); gauge != nil {
		gauge.Set(d.Report.Balance.Gini)
	}
	if gauge := r.GetGauge(HotelOccupancyRate); gauge != nil {
		gauge.Reset()
		for _, h := range d.Report.Hotels {
			gauge.Set(h.OccupancyRate, h.HotelID)
		}
	}
	if gauge := r.GetGauge(AssignmentConflicts); gauge != nil {
		gauge.Set(float64(d.ConflictSummary.Critical), string(validator.SeverityCritical))
		gauge.Set(float64(d.ConflictSummary.High), string(validator.SeverityHigh))
		gauge.Set(float64(d.ConflictSummary.Medium), string(validator.SeverityMedium))
	}
}

// SetDBConnections 记录数据库连接池状态
func SetDBConnections(inUse, idle int) {
	if gauge := GetRegistry().GetGauge(DBConnections); gauge != nil {
		gauge.Set(float64(inUse), "in_use")
		gauge.Set(float64(idle), "idle")
	}
}
