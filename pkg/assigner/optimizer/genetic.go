// Package optimizer 提供基于种群的分房方案优化
package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/paiban/roomassign/pkg/logger"
	"github.com/paiban/roomassign/pkg/model"
	"github.com/paiban/roomassign/pkg/rules"
)

// DefaultIterations 默认迭代代数
const DefaultIterations = 100

// Options 单次优化参数
type Options struct {
	Iterations int   `json:"iterations"` // 0 表示使用配置的代数
	Seed       int64 `json:"seed"`       // 0 表示按当前时间取种子
}

// Result 优化结果
type Result struct {
	Optimized      *model.Assignment `json:"optimized"`
	Fitness        float64           `json:"fitness"`
	InitialFitness float64           `json:"initial_fitness"`
	Improvement    float64           `json:"improvement"`
	Generations    int               `json:"generations"`
	Duration       time.Duration     `json:"duration"`
}

// GeneticOptimizer 遗传式局部搜索优化器
//
// 每代按适应度保留精英，再从精英中随机克隆补足种群并按概率变异。
// 精英原样进入下一代，因此最优个体的适应度不会低于输入方案。
type GeneticOptimizer struct {
	cfg       rules.GeneticConfig
	fitness   *FitnessEvaluator
	evaluator *ParallelEvaluator
	logger    *logger.EngineLogger
	now       func() time.Time
}

// NewGeneticOptimizer 创建优化器
func NewGeneticOptimizer(cfg *rules.Config, log *logger.EngineLogger) *GeneticOptimizer {
	if cfg == nil {
		cfg = rules.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNopEngineLogger()
	}
	fitness := NewFitnessEvaluator(cfg)
	return &GeneticOptimizer{
		cfg:       cfg.Genetic,
		fitness:   fitness,
		evaluator: NewParallelEvaluator(cfg.Genetic.Workers, fitness),
		logger:    log,
		now:       time.Now,
	}
}

// SetClock 设置时间来源
func (o *GeneticOptimizer) SetClock(now func() time.Time) {
	o.now = now
}

// Fitness 计算方案适应度
func (o *GeneticOptimizer) Fitness(a *model.Assignment) float64 {
	return o.fitness.Evaluate(a)
}

type individual struct {
	assignment *model.Assignment
	fitness    float64
}

// Optimize 优化方案，返回适应度最高的个体
// ctx 每代检查一次；取消时返回当前最优个体及 ctx.Err()。
func (o *GeneticOptimizer) Optimize(ctx context.Context, a *model.Assignment, opts Options) (*Result, error) {
	start := time.Now()

	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = o.cfg.Generations
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	popSize := o.cfg.PopulationSize
	if popSize <= 0 {
		popSize = 1
	}
	eliteSize := o.cfg.EliteSize
	if eliteSize <= 0 || eliteSize > popSize {
		eliteSize = popSize
	}

	o.logger.OperationStart("optimize", len(a.Clients), countRooms(a))

	initialFitness := o.fitness.Evaluate(a)
	population := make([]*individual, popSize)
	for i := range population {
		population[i] = &individual{assignment: a.Clone()}
	}

	var err error
	generations := 0
	for gen := 0; gen < iterations; gen++ {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		generations++

		o.rank(population)
		o.logger.GenerationBest(gen, population[0].fitness)

		survivors := population[:eliteSize]
		next := make([]*individual, 0, popSize)
		next = append(next, survivors...)
		for len(next) < popSize {
			parent := survivors[rng.Intn(len(survivors))]
			child := &individual{assignment: parent.assignment.Clone()}
			if rng.Float64() < o.cfg.MutationRate {
				o.mutate(child.assignment, rng)
			}
			next = append(next, child)
		}
		population = next
	}

	o.rank(population)
	best := population[0]
	optimized := best.assignment.Clone()
	optimized.Version = a.Version + 1

	result := &Result{
		Optimized:      optimized,
		Fitness:        best.fitness,
		InitialFitness: initialFitness,
		Improvement:    best.fitness - initialFitness,
		Generations:    generations,
		Duration:       time.Since(start),
	}
	o.logger.OperationComplete("optimize", result.Duration, map[string]interface{}{
		"generations": generations,
		"fitness":     result.Fitness,
		"improvement": result.Improvement,
	})
	return result, err
}

// rank 评估并按适应度降序排列（稳定排序）
func (o *GeneticOptimizer) rank(population []*individual) {
	candidates := make([]*model.Assignment, len(population))
	for i, ind := range population {
		candidates[i] = ind.assignment
	}
	scores := o.evaluator.EvaluateBatch(candidates)
	for i, ind := range population {
		ind.fitness = scores[i]
	}
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
}

// mutate 在同一酒店内随机选两个房间，把一位入住者从前者移到有空位的后者
func (o *GeneticOptimizer) mutate(a *model.Assignment, rng *rand.Rand) {
	var hotels []*model.Hotel
	for _, h := range a.Hotels {
		if len(a.Rooms[h.ID]) >= 2 {
			hotels = append(hotels, h)
		}
	}
	if len(hotels) == 0 {
		return
	}

	hotel := hotels[rng.Intn(len(hotels))]
	rooms := a.Rooms[hotel.ID]
	i := rng.Intn(len(rooms))
	j := rng.Intn(len(rooms) - 1)
	if j >= i {
		j++
	}

	from, to := rooms[i], rooms[j]
	if from.OccupantCount() == 0 || to.AvailableSpots() == 0 {
		return
	}
	occupant := from.Occupants[rng.Intn(len(from.Occupants))]
	a.MoveInPlace(occupant.ClientID, to.Ref(), model.AssignmentAuto, o.now())
}

func countRooms(a *model.Assignment) int {
	n := 0
	for _, rooms := range a.Rooms {
		n += len(rooms)
	}
	return n
}
