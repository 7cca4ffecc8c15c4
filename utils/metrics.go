package utils

import (
	"sync"
	"time"
)

// Операции над визитками, учитываемые в метриках
const (
	CardOpCreate  = "create"
	CardOpReplace = "replace"
	CardOpDelete  = "delete"
	CardOpView    = "view"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики визиток
	CardsCreated      int64
	CardsReplaced     int64
	CardsDeleted      int64
	PublicViews       int64
	QuotaRejections   int64
	ValidationErrors  int64
	LastCardOperation time.Time

	// Метрики ошибок
	ErrorCount     int64
	LastErrorTime  time.Time
	ErrorTypes     map[string]int64
	CriticalErrors int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// NewMetrics создает независимый набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorTypes: make(map[string]int64),
	}
}

// GetMetrics возвращает общий экземпляр метрик процесса
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// RecordRequest записывает метрики запроса. Ошибкой считается ответ со статусом 5xx.
func (m *Metrics) RecordRequest(duration time.Duration, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if status >= 500 {
		m.FailedRequests++
	}
}

// RecordCardOperation записывает метрики операции с визиткой
func (m *Metrics) RecordCardOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastCardOperation = time.Now()

	if err != nil {
		m.recordErrorLocked(operation + ": " + err.Error())
		return
	}

	switch operation {
	case CardOpCreate:
		m.CardsCreated++
	case CardOpReplace:
		m.CardsReplaced++
	case CardOpDelete:
		m.CardsDeleted++
	case CardOpView:
		m.PublicViews++
	}
}

// RecordQuotaRejection учитывает отказ по лимиту тарифа
func (m *Metrics) RecordQuotaRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuotaRejections++
}

// RecordValidationError учитывает отклоненный валидацией запрос
func (m *Metrics) RecordValidationError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.recordErrorLocked(errorType)
}

// RecordCriticalError записывает метрики критической ошибки (сбой транзакции и т.п.)
func (m *Metrics) RecordCriticalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CriticalErrors++
	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.recordErrorLocked(errorType)
}

func (m *Metrics) recordErrorLocked(errorType string) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":    m.TotalRequests,
		"failed_requests":   m.FailedRequests,
		"average_latency":   m.AverageLatency.String(),
		"cards_created":     m.CardsCreated,
		"cards_replaced":    m.CardsReplaced,
		"cards_deleted":     m.CardsDeleted,
		"public_views":      m.PublicViews,
		"quota_rejections":  m.QuotaRejections,
		"validation_errors": m.ValidationErrors,
		"error_count":       m.ErrorCount,
		"critical_errors":   m.CriticalErrors,
		"last_error_time":   m.LastErrorTime,
		"error_types":       errorTypes,
	}
}
