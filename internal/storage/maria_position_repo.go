package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/vec"
	_ "github.com/go-sql-driver/mysql"
)

// MariaPositionRepo реализует PositionRepo для MariaDB/MySQL.
// Использует таблицу entity_positions.
type MariaPositionRepo struct {
	db *sql.DB
}

const upsertPositionQuery = `
	INSERT INTO entity_positions (entity_id, x, y)
	VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE
		x = VALUES(x),
		y = VALUES(y),
		updated_at = CURRENT_TIMESTAMP
`

// NewMariaPositionRepo подключается к БД по dsn (user:pass@tcp(host:port)/dbname)
// и создает таблицу, если она не существует.
func NewMariaPositionRepo(dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// createTable создает таблицу entity_positions, если она не существует
func (r *MariaPositionRepo) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS entity_positions (
			entity_id  BIGINT UNSIGNED PRIMARY KEY,
			x          DOUBLE          NOT NULL,
			y          DOUBLE          NOT NULL,
			updated_at TIMESTAMP       DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE       CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы entity_positions: %w", err)
	}
	return nil
}

// Save сохраняет позицию сущности
func (r *MariaPositionRepo) Save(ctx context.Context, entityID uint64, pos vec.Vec2Float) error {
	if err := validatePosition(entityID, pos); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertPositionQuery, entityID, pos.X, pos.Y); err != nil {
		return fmt.Errorf("ошибка сохранения позиции сущности %d: %w", entityID, err)
	}
	return nil
}

// Load загружает позицию сущности
func (r *MariaPositionRepo) Load(ctx context.Context, entityID uint64) (vec.Vec2Float, bool, error) {
	if entityID == 0 {
		return vec.Vec2Float{}, false, fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}

	var pos vec.Vec2Float
	err := r.db.QueryRowContext(ctx,
		`SELECT x, y FROM entity_positions WHERE entity_id = ?`, entityID).Scan(&pos.X, &pos.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return vec.Vec2Float{}, false, nil
	}
	if err != nil {
		return vec.Vec2Float{}, false, fmt.Errorf("ошибка загрузки позиции сущности %d: %w", entityID, err)
	}
	return pos, true, nil
}

// Delete удаляет сохраненную позицию
func (r *MariaPositionRepo) Delete(ctx context.Context, entityID uint64) error {
	if entityID == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidEntityID, entityID)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM entity_positions WHERE entity_id = ?`, entityID)
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции сущности %d: %w", entityID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: сущность %d", ErrPositionNotFound, entityID)
	}
	return nil
}

// BatchSave сохраняет позиции нескольких сущностей в одной транзакции
func (r *MariaPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Vec2Float) error {
	if len(positions) == 0 {
		return nil // Нечего сохранять
	}
	for entityID, pos := range positions {
		if err := validatePosition(entityID, pos); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	stmt, err := tx.PrepareContext(ctx, upsertPositionQuery)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for entityID, pos := range positions {
		if _, err := stmt.ExecContext(ctx, entityID, pos.X, pos.Y); err != nil {
			return fmt.Errorf("ошибка сохранения позиции сущности %d в batch: %w", entityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Close закрывает соединение с базой данных
func (r *MariaPositionRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
