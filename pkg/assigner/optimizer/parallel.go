package optimizer

import (
	"sync"

	"github.com/paiban/roomassign/pkg/model"
)

// ParallelEvaluator 并行评估种群适应度
type ParallelEvaluator struct {
	workers   int
	evaluator *FitnessEvaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator *FitnessEvaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 1
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluationResult 评估结果
type EvaluationResult struct {
	Index   int
	Fitness float64
}

// EvaluateBatch 评估一批方案，结果与输入下标一一对应
//
// 单个工作协程时在调用方协程内顺序执行。
func (p *ParallelEvaluator) EvaluateBatch(candidates []*model.Assignment) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	if p.workers == 1 {
		results := make([]float64, len(candidates))
		for i, c := range candidates {
			results[i] = p.evaluator.Evaluate(c)
		}
		return results
	}

	resultChan := make(chan EvaluationResult, len(candidates))
	jobChan := make(chan int, len(candidates))

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				resultChan <- EvaluationResult{
					Index:   idx,
					Fitness: p.evaluator.Evaluate(candidates[idx]),
				}
			}
		}()
	}

	for i := range candidates {
		jobChan <- i
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	results := make([]float64, len(candidates))
	for r := range resultChan {
		results[r.Index] = r.Fitness
	}
	return results
}
