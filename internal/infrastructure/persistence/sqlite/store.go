// Package sqlite provides the default local classroom store on a single
// SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/records"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/sqlite/migrations"
)

// Store persists the classroom in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func storageErr(op string, err error) error {
	return shared.WrapError("sqlite", op, shared.ErrStorage, "query failed", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.NewDomainError("sqlite", "GetConfig", shared.ErrNotFound, fmt.Sprintf("config %q not set", key))
	}
	if err != nil {
		return nil, storageErr("GetConfig", err)
	}
	return []byte(value), nil
}

func (s *Store) PutConfig(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return shared.NewDomainError("sqlite", "PutConfig", shared.ErrValidation, "config value must be JSON")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return storageErr("PutConfig", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Students
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) SaveStudent(ctx context.Context, st *student.Student) error {
	rec := records.FromStudent(st)
	if err := records.Validate(rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, name, avatar, gender, extra_info, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			avatar = excluded.avatar,
			gender = excluded.gender,
			extra_info = excluded.extra_info`,
		rec.ID, rec.Name, rec.Avatar, rec.Gender, rec.ExtraInfo, rec.CreatedAt)
	if err != nil {
		return storageErr("SaveStudent", err)
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avatar, gender, extra_info, created_at
		FROM students ORDER BY seq`)
	if err != nil {
		return nil, storageErr("ListStudents", err)
	}
	defer rows.Close()

	var out []*student.Student
	for rows.Next() {
		var rec records.Student
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Avatar, &rec.Gender, &rec.ExtraInfo, &rec.CreatedAt); err != nil {
			return nil, storageErr("ListStudents", err)
		}
		if err := records.Validate(rec); err != nil {
			return nil, err
		}
		out = append(out, rec.Domain())
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListStudents", err)
	}
	return out, nil
}

func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
		return storageErr("DeleteStudent", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Pets
// ──────────────────────────────────────────────────────────────────────────────

const petColumns = `id, name, stage, progress, points, food, custom_images, is_adopted, adoption_date, logs`

func (s *Store) SavePet(ctx context.Context, p *pet.Pet) error {
	rec := records.FromPet(p)
	if err := records.Validate(rec); err != nil {
		return err
	}
	images, err := json.Marshal(rec.CustomImages)
	if err != nil {
		return storageErr("SavePet", err)
	}
	logs, err := json.Marshal(rec.Logs)
	if err != nil {
		return storageErr("SavePet", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			stage = excluded.stage,
			progress = excluded.progress,
			points = excluded.points,
			food = excluded.food,
			custom_images = excluded.custom_images,
			is_adopted = excluded.is_adopted,
			adoption_date = excluded.adoption_date,
			logs = excluded.logs`,
		rec.ID, rec.Name, rec.Stage, rec.Progress, rec.Points, rec.Food,
		string(images), rec.IsAdopted, rec.AdoptionDate, string(logs))
	if err != nil {
		return storageErr("SavePet", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPet(row scanner) (*pet.Pet, error) {
	var (
		rec    records.Pet
		images string
		logs   string
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Stage, &rec.Progress, &rec.Points, &rec.Food,
		&images, &rec.IsAdopted, &rec.AdoptionDate, &logs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(images), &rec.CustomImages); err != nil {
		return nil, fmt.Errorf("pet %s images: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(logs), &rec.Logs); err != nil {
		return nil, fmt.Errorf("pet %s logs: %w", rec.ID, err)
	}
	if err := records.Validate(rec); err != nil {
		return nil, err
	}
	return rec.Domain(), nil
}

func (s *Store) GetPet(ctx context.Context, id string) (*pet.Pet, error) {
	p, err := scanPet(s.db.QueryRowContext(ctx, `SELECT `+petColumns+` FROM pets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPetNotFound
	}
	if err != nil {
		return nil, storageErr("GetPet", err)
	}
	return p, nil
}

func (s *Store) ListPets(ctx context.Context) (map[string]*pet.Pet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+petColumns+` FROM pets`)
	if err != nil {
		return nil, storageErr("ListPets", err)
	}
	defer rows.Close()

	out := map[string]*pet.Pet{}
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, storageErr("ListPets", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListPets", err)
	}
	return out, nil
}

func (s *Store) DeletePet(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pets WHERE id = ?`, id); err != nil {
		return storageErr("DeletePet", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resources
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) SavePetImagePack(ctx context.Context, p preset.PetImagePack) error {
	rec := records.FromPetImagePack(p)
	if err := records.Validate(rec); err != nil {
		return err
	}
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return storageErr("SavePetImagePack", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pet_image_packs (id, name, images) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, images = excluded.images`,
		rec.ID, rec.Name, string(images))
	if err != nil {
		return storageErr("SavePetImagePack", err)
	}
	return nil
}

func (s *Store) ListPetImagePacks(ctx context.Context) ([]preset.PetImagePack, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, images FROM pet_image_packs ORDER BY seq`)
	if err != nil {
		return nil, storageErr("ListPetImagePacks", err)
	}
	defer rows.Close()

	var out []preset.PetImagePack
	for rows.Next() {
		var (
			rec    records.PetImagePack
			images string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &images); err != nil {
			return nil, storageErr("ListPetImagePacks", err)
		}
		if err := json.Unmarshal([]byte(images), &rec.Images); err != nil {
			return nil, storageErr("ListPetImagePacks", err)
		}
		if err := records.Validate(rec); err != nil {
			return nil, err
		}
		out = append(out, rec.Domain())
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListPetImagePacks", err)
	}
	return out, nil
}

func (s *Store) DeletePetImagePack(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pet_image_packs WHERE id = ?`, id); err != nil {
		return storageErr("DeletePetImagePack", err)
	}
	return nil
}

func (s *Store) SaveAvatarPreset(ctx context.Context, a preset.AvatarPreset) error {
	rec := records.FromAvatarPreset(a)
	if err := records.Validate(rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO avatar_presets (id, name, image) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, image = excluded.image`,
		rec.ID, rec.Name, rec.Image)
	if err != nil {
		return storageErr("SaveAvatarPreset", err)
	}
	return nil
}

func (s *Store) ListAvatarPresets(ctx context.Context) ([]preset.AvatarPreset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, image FROM avatar_presets ORDER BY seq`)
	if err != nil {
		return nil, storageErr("ListAvatarPresets", err)
	}
	defer rows.Close()

	var out []preset.AvatarPreset
	for rows.Next() {
		var rec records.AvatarPreset
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Image); err != nil {
			return nil, storageErr("ListAvatarPresets", err)
		}
		out = append(out, rec.Domain())
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("ListAvatarPresets", err)
	}
	return out, nil
}

func (s *Store) DeleteAvatarPreset(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM avatar_presets WHERE id = ?`, id); err != nil {
		return storageErr("DeleteAvatarPreset", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Avatar pool
// ──────────────────────────────────────────────────────────────────────────────

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listPool(ctx context.Context, q querier) ([]avatarpool.Asset, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, image, timestamp FROM pool_assets ORDER BY timestamp, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []avatarpool.Asset
	for rows.Next() {
		var rec records.PoolAsset
		if err := rows.Scan(&rec.ID, &rec.Image, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec.Domain())
	}
	return out, rows.Err()
}

func (s *Store) ListPoolAssets(ctx context.Context) ([]avatarpool.Asset, error) {
	out, err := listPool(ctx, s.db)
	if err != nil {
		return nil, storageErr("ListPoolAssets", err)
	}
	return out, nil
}

// SavePoolAssets merges the batch with the stored pool in one transaction.
// Overwritten IDs are re-inserted so they take the position of new items.
func (s *Store) SavePoolAssets(ctx context.Context, newAssets []avatarpool.Asset) (avatarpool.InsertResult, error) {
	for _, a := range newAssets {
		if err := records.Validate(records.FromPoolAsset(a)); err != nil {
			return avatarpool.InsertResult{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := listPool(ctx, tx)
	if err != nil {
		return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
	}
	res := avatarpool.Insert(newAssets, existing)

	for _, a := range res.Evicted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pool_assets WHERE id = ?`, a.ID); err != nil {
			return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
		}
	}
	for _, a := range res.Persisted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pool_assets WHERE id = ?`, a.ID); err != nil {
			return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pool_assets (id, image, timestamp) VALUES (?, ?, ?)`,
			a.ID, a.Image, a.Timestamp); err != nil {
			return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

var allTables = []string{"app_config", "students", "pets", "pet_image_packs", "avatar_presets", "pool_assets"}

func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("ClearAll", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range allTables {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return storageErr("ClearAll", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("ClearAll", err)
	}
	return nil
}
