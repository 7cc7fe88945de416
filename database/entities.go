package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/model"
	loadSql "github.com/siherrmann/hybridqa/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	UpsertEntity(entity *model.Entity) error
	UpsertMention(chunkID string, entityName string) (bool, error)
	SelectEntityByName(name string) (*model.Entity, error)
	SelectAllEntities(limit int) ([]*model.Entity, error)
	SelectChunksByEntityKeyword(keyword string) ([]*model.Chunk, error)
	SelectEntitiesForChunk(chunkID string) ([]*model.Entity, error)
	ClearGraph() error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// The chunks table must exist before the mentions table can be created.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' and 'mentions' tables in the database.
// If the tables already exist, it does not create them again.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables entities and mentions")

	return nil
}

// UpsertEntity merges an entity node by its exact name. Re-upserting the same
// name updates the label and keeps the row.
func (h *EntitiesDBHandler) UpsertEntity(entity *model.Entity) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3)`,
		entity.Name,
		entity.Label,
		entity.Metadata,
	)

	err := row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.Name,
		&entity.Label,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpsertMention merges a MENTIONS edge between a chunk and an entity.
// It returns false when either endpoint does not exist.
func (h *EntitiesDBHandler) UpsertMention(chunkID string, entityName string) (bool, error) {
	var created bool
	err := h.db.Instance.QueryRow(
		`SELECT upsert_mention($1, $2)`,
		chunkID,
		entityName,
	).Scan(&created)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectEntityByName retrieves an entity by its exact name.
func (h *EntitiesDBHandler) SelectEntityByName(name string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1)`,
		name,
	)

	err := row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.Name,
		&entity.Label,
		&entity.Metadata,
		&entity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select entity", fmt.Errorf("entity %s: %w", name, helper.ErrNotFound))
	} else if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectAllEntities retrieves entities ordered by name, up to limit.
func (h *EntitiesDBHandler) SelectAllEntities(limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_all_entities($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectChunksByEntityKeyword retrieves all chunks mentioning any entity whose
// name contains the keyword, case-insensitive.
func (h *EntitiesDBHandler) SelectChunksByEntityKeyword(keyword string) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_entity_keyword($1)`,
		keyword,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// SelectEntitiesForChunk retrieves all entities mentioned by a chunk.
func (h *EntitiesDBHandler) SelectEntitiesForChunk(chunkID string) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_for_chunk($1)`,
		chunkID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// ClearGraph wipes all documents, chunks, entities and mentions.
// Used only by full-rebuild ingestion.
func (h *EntitiesDBHandler) ClearGraph() error {
	_, err := h.db.Instance.Exec(`SELECT clear_graph()`)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Info("Cleared knowledge graph")

	return nil
}

// scanEntities reads rows in the shape returned by the entity select functions.
func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.RID,
			&entity.Name,
			&entity.Label,
			&entity.Metadata,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
