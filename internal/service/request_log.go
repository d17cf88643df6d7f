package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aiproxy/internal/model"
	"aiproxy/internal/repository"
)

type RequestLogService struct {
	repo *repository.RequestLogRepository
}

func NewRequestLogService() *RequestLogService {
	return &RequestLogService{
		repo: repository.NewRequestLogRepository(),
	}
}

func (s *RequestLogService) Query(q model.RequestLogQuery) ([]*model.RequestLog, error) {
	return s.repo.Query(q)
}

func (s *RequestLogService) Get(id string) (*model.RequestLog, error) {
	return s.repo.GetByID(id)
}

// modelPricing 按每百万 token 的美元价格估算成本
// 按模型名称子串匹配，未命中时返回零价
type modelPricing struct {
	marker string
	input  decimal.Decimal
	output decimal.Decimal
}

var pricingTable = []modelPricing{
	{"opus", decimal.NewFromFloat(15.0), decimal.NewFromFloat(75.0)},
	{"sonnet", decimal.NewFromFloat(3.0), decimal.NewFromFloat(15.0)},
	{"haiku", decimal.NewFromFloat(0.8), decimal.NewFromFloat(4.0)},
	{"grok", decimal.NewFromFloat(3.0), decimal.NewFromFloat(15.0)},
	{"gpt-4o-mini", decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.6)},
	{"gpt-4o", decimal.NewFromFloat(2.5), decimal.NewFromFloat(10.0)},
	{"mini", decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.6)},
}

var tokensPerUnit = decimal.NewFromInt(1_000_000)

func priceFor(modelName string) (decimal.Decimal, decimal.Decimal) {
	lower := strings.ToLower(modelName)
	for _, p := range pricingTable {
		if strings.Contains(lower, p.marker) {
			return p.input, p.output
		}
	}
	return decimal.Zero, decimal.Zero
}

// estimateCost 计算单行聚合的估算成本，保留 6 位小数
func estimateCost(modelName string, inputTokens, outputTokens int64) string {
	inPrice, outPrice := priceFor(modelName)
	cost := decimal.NewFromInt(inputTokens).Mul(inPrice).
		Add(decimal.NewFromInt(outputTokens).Mul(outPrice)).
		Div(tokensPerUnit)
	return cost.Round(6).String()
}

// Summary 返回按供应商与模型聚合的用量及估算成本
func (s *RequestLogService) Summary(q model.RequestLogQuery) ([]*model.UsageSummaryRow, error) {
	rows, err := s.repo.Summary(q)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.EstimatedCost = estimateCost(row.Model, row.InputTokens, row.OutputTokens)
	}
	return rows, nil
}

// Purge 删除早于保留期的日志，返回删除行数
func (s *RequestLogService) Purge(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02 15:04:05")
	return s.repo.DeleteBefore(cutoff)
}
