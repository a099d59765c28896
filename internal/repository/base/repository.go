package base

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStaleVersion запись изменилась после чтения (compare-and-swap не прошёл)
var ErrStaleVersion = errors.New("stale version")

// Repository общие методы репозиториев поверх пула
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// QueryRow выполняет запрос и возвращает одну строку
func (r *Repository) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	return r.pool.QueryRow(ctx, query, args...)
}

// Exec выполняет команду; op попадает в текст ошибки
func (r *Repository) Exec(ctx context.Context, op, query string, args ...interface{}) error {
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExecVersioned выполняет UPDATE с условием на version.
// Ноль затронутых строк значит, что запись уже изменили или её нет.
func (r *Repository) ExecVersioned(ctx context.Context, op, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrStaleVersion)
	}
	return nil
}

// QueryAll читает все строки запроса через scan. Пустой результат отдаётся
// пустым срезом, а не nil.
func QueryAll[T any](ctx context.Context, r *Repository, op, query string, scan func(pgx.Row) (*T, error), args ...interface{}) ([]*T, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// IsNotFound проверяет является ли ошибка "строка не найдена"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
