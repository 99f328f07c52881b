package search

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// 批量搜索默认并发数
const defaultBatchConcurrency = 3

// BatchResult 批量搜索中单个查询的结果
type BatchResult struct {
	Query     string     `json:"query"`
	ResultSet *ResultSet `json:"result,omitempty"`
	Err       error      `json:"-"`
}

// SearchBatch 并发执行多个查询，返回顺序与 queries 一致。
// 单个查询失败不会影响其他查询，错误记录在对应的 BatchResult 中。
func (o *Orchestrator) SearchBatch(ctx context.Context, queries []string, maxResults int, concurrency int) []BatchResult {
	if concurrency < 1 {
		concurrency = defaultBatchConcurrency
	}
	out := make([]BatchResult, len(queries))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, q := range queries {
		i, q := i, q
		out[i].Query = q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			rs, err := o.Search(ctx, q, maxResults, 0)
			out[i].ResultSet = rs
			out[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Infof("📦 Batch search finished: %d queries", len(queries))
	return out
}
