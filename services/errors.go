package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCardNotFound объединяет "визитки нет" и "визитка не ваша", чтобы не раскрывать факт существования
var ErrCardNotFound = errors.New("card not found or unauthorized")

// ErrUserNotFound пользователь не найден
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists пользователь с таким email уже зарегистрирован
var ErrUserExists = errors.New("user with this email already exists")

// QuotaExceededError отказ по лимиту тарифа. Это бизнес-правило, а не сбой сервера.
type QuotaExceededError struct {
	CurrentCards     int64
	MaxCards         int64
	SubscriptionPlan string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("card limit reached: %d of %d on plan %q", e.CurrentCards, e.MaxCards, e.SubscriptionPlan)
}

// ValidationError ошибки валидации по полям. Ключ - путь поля в JSON, например social_links[0].url.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// TransactionError сбой хранилища внутри многошаговой записи. Транзакция к этому моменту откатана.
// Наружу отдается только как внутренняя ошибка, подробности идут в лог.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
