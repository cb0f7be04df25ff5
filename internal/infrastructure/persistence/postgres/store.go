package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/petgalaxy/classroom-pets/internal/domain/avatarpool"
	"github.com/petgalaxy/classroom-pets/internal/domain/pet"
	"github.com/petgalaxy/classroom-pets/internal/domain/preset"
	"github.com/petgalaxy/classroom-pets/internal/domain/shared"
	"github.com/petgalaxy/classroom-pets/internal/domain/student"
	"github.com/petgalaxy/classroom-pets/internal/infrastructure/persistence/records"
)

// Store implements the classroom store on a Connection.
type Store struct {
	conn *Connection
}

// NewStore wraps an open connection. Run the Migrator before first use.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	conn, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(conn).Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return NewStore(conn), nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.conn.Close()
	return nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// MigrationStatus lists every known migration with its applied flag.
func (s *Store) MigrationStatus(ctx context.Context) ([]Migration, error) {
	return NewMigrator(s.conn).Status(ctx)
}

// RollbackLast reverts the most recently applied migration.
func (s *Store) RollbackLast(ctx context.Context) error {
	return NewMigrator(s.conn).Rollback(ctx)
}

func storageErr(op string, err error) error {
	return shared.WrapError("postgres", op, shared.ErrStorage, "query failed", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&value)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("postgres", "GetConfig", shared.ErrNotFound, fmt.Sprintf("config %q not set", key))
	}
	if err != nil {
		return nil, storageErr("GetConfig", err)
	}
	return value, nil
}

func (s *Store) PutConfig(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return shared.NewDomainError("postgres", "PutConfig", shared.ErrValidation, "config value must be JSON")
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO app_config (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
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
	_, err := s.conn.Exec(ctx, `
		INSERT INTO students (id, name, avatar, gender, extra_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			avatar = EXCLUDED.avatar,
			gender = EXCLUDED.gender,
			extra_info = EXCLUDED.extra_info`,
		rec.ID, rec.Name, rec.Avatar, rec.Gender, rec.ExtraInfo, rec.CreatedAt)
	if err != nil {
		return storageErr("SaveStudent", err)
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context) ([]*student.Student, error) {
	rows, err := s.conn.Query(ctx, `
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
	if _, err := s.conn.Exec(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
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

	_, err = s.conn.Exec(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			stage = EXCLUDED.stage,
			progress = EXCLUDED.progress,
			points = EXCLUDED.points,
			food = EXCLUDED.food,
			custom_images = EXCLUDED.custom_images,
			is_adopted = EXCLUDED.is_adopted,
			adoption_date = EXCLUDED.adoption_date,
			logs = EXCLUDED.logs`,
		rec.ID, rec.Name, rec.Stage, rec.Progress, rec.Points, rec.Food,
		string(images), rec.IsAdopted, rec.AdoptionDate, string(logs))
	if err != nil {
		return storageErr("SavePet", err)
	}
	return nil
}

func scanPet(row pgx.Row) (*pet.Pet, error) {
	var (
		rec    records.Pet
		images []byte
		logs   []byte
	)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Stage, &rec.Progress, &rec.Points, &rec.Food,
		&images, &rec.IsAdopted, &rec.AdoptionDate, &logs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &rec.CustomImages); err != nil {
		return nil, fmt.Errorf("pet %s images: %w", rec.ID, err)
	}
	if err := json.Unmarshal(logs, &rec.Logs); err != nil {
		return nil, fmt.Errorf("pet %s logs: %w", rec.ID, err)
	}
	if err := records.Validate(rec); err != nil {
		return nil, err
	}
	return rec.Domain(), nil
}

func (s *Store) GetPet(ctx context.Context, id string) (*pet.Pet, error) {
	p, err := scanPet(s.conn.QueryRow(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrPetNotFound
	}
	if err != nil {
		return nil, storageErr("GetPet", err)
	}
	return p, nil
}

func (s *Store) ListPets(ctx context.Context) (map[string]*pet.Pet, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+petColumns+` FROM pets`)
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
	if _, err := s.conn.Exec(ctx, `DELETE FROM pets WHERE id = $1`, id); err != nil {
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
	_, err = s.conn.Exec(ctx, `
		INSERT INTO pet_image_packs (id, name, images) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, images = EXCLUDED.images`,
		rec.ID, rec.Name, string(images))
	if err != nil {
		return storageErr("SavePetImagePack", err)
	}
	return nil
}

func (s *Store) ListPetImagePacks(ctx context.Context) ([]preset.PetImagePack, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, name, images FROM pet_image_packs ORDER BY seq`)
	if err != nil {
		return nil, storageErr("ListPetImagePacks", err)
	}
	defer rows.Close()

	var out []preset.PetImagePack
	for rows.Next() {
		var (
			rec    records.PetImagePack
			images []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &images); err != nil {
			return nil, storageErr("ListPetImagePacks", err)
		}
		if err := json.Unmarshal(images, &rec.Images); err != nil {
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
	if _, err := s.conn.Exec(ctx, `DELETE FROM pet_image_packs WHERE id = $1`, id); err != nil {
		return storageErr("DeletePetImagePack", err)
	}
	return nil
}

func (s *Store) SaveAvatarPreset(ctx context.Context, a preset.AvatarPreset) error {
	rec := records.FromAvatarPreset(a)
	if err := records.Validate(rec); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO avatar_presets (id, name, image) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image = EXCLUDED.image`,
		rec.ID, rec.Name, rec.Image)
	if err != nil {
		return storageErr("SaveAvatarPreset", err)
	}
	return nil
}

func (s *Store) ListAvatarPresets(ctx context.Context) ([]preset.AvatarPreset, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, name, image FROM avatar_presets ORDER BY seq`)
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
	if _, err := s.conn.Exec(ctx, `DELETE FROM avatar_presets WHERE id = $1`, id); err != nil {
		return storageErr("DeleteAvatarPreset", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Avatar pool
// ──────────────────────────────────────────────────────────────────────────────

func listPool(ctx context.Context, q Querier) ([]avatarpool.Asset, error) {
	rows, err := q.Query(ctx, `SELECT id, image, ts FROM pool_assets ORDER BY ts, seq`)
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
	out, err := listPool(ctx, s.conn)
	if err != nil {
		return nil, storageErr("ListPoolAssets", err)
	}
	return out, nil
}

// SavePoolAssets merges the batch with the stored pool in one transaction.
// The pool rows are locked so concurrent uploads cannot overfill it.
func (s *Store) SavePoolAssets(ctx context.Context, newAssets []avatarpool.Asset) (avatarpool.InsertResult, error) {
	for _, a := range newAssets {
		if err := records.Validate(records.FromPoolAsset(a)); err != nil {
			return avatarpool.InsertResult{}, err
		}
	}

	var res avatarpool.InsertResult
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE pool_assets IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		existing, err := listPool(ctx, tx)
		if err != nil {
			return err
		}
		res = avatarpool.Insert(newAssets, existing)

		batch := &pgx.Batch{}
		for _, a := range res.Evicted {
			batch.Queue(`DELETE FROM pool_assets WHERE id = $1`, a.ID)
		}
		for _, a := range res.Persisted {
			batch.Queue(`DELETE FROM pool_assets WHERE id = $1`, a.ID)
			batch.Queue(`INSERT INTO pool_assets (id, image, ts) VALUES ($1, $2, $3)`, a.ID, a.Image, a.Timestamp)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return avatarpool.InsertResult{}, storageErr("SavePoolAssets", err)
	}
	return res, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `TRUNCATE app_config, students, pets, pet_image_packs, avatar_presets, pool_assets`)
	if err != nil {
		return storageErr("ClearAll", err)
	}
	return nil
}
