package models

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	sqlmysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// GormStore is the mysql-backed Store.
type GormStore struct {
	db *gorm.DB
}

// normalizeDSN forces CLIENT_FOUND_ROWS so UPDATE reports matched rows
// rather than changed rows. Without it a no-op write (same values, same
// millisecond) counts zero rows and is indistinguishable from a missing
// record.
func normalizeDSN(dsn string) (string, error) {
	cfg, err := sqlmysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// InitDB opens the mysql connection pool, wraps it with GORM and migrates
// the schema.
func InitDB(dsn string) (*GormStore, error) {
	dsn, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Project{}, &GenerationJob{}, &StitchJob{}); err != nil {
		return nil, err
	}
	log.Println("database connected (mysql + gorm)")
	return &GormStore{db: db}, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateProject(ctx context.Context, p *Project) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *GormStore) SaveProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"title":            p.Title,
		"orientation":      p.Orientation,
		"duration_seconds": p.DurationSeconds,
		"audio_enabled":    p.AudioEnabled,
		"updated_at":       p.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteProject(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	// Jobs of a deleted project are of no further interest.
	s.db.WithContext(ctx).Delete(&GenerationJob{}, "project_id = ?", id)
	s.db.WithContext(ctx).Delete(&StitchJob{}, "project_id = ?", id)
	return nil
}

func (s *GormStore) BeginGeneration(ctx context.Context, id string, prompts []string) error {
	res := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"prompt_list":  PromptList(prompts),
		"clip_results": ClipMap{},
		"status":       ProjectStatusGenerating,
		"error_info":   "",
		"updated_at":   time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetClipResult(ctx context.Context, id string, index int, ref string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Project
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if p.ClipResults == nil {
			p.ClipResults = ClipMap{}
		}
		if _, present := p.ClipResults[index]; present {
			return nil
		}
		p.ClipResults[index] = ref
		return tx.Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
			"clip_results": p.ClipResults,
			"updated_at":   time.Now(),
		}).Error
	})
}

func (s *GormStore) UpdateProjectStatus(ctx context.Context, id string, status, errorInfo string) error {
	res := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"error_info": errorInfo,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SetStitchedResult(ctx context.Context, id string, ref string) error {
	res := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stitched_result": ref,
		"updated_at":      time.Now(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ClearStitchedResult(ctx context.Context, id string) error {
	return s.SetStitchedResult(ctx, id, "")
}

func (s *GormStore) CreateGenerationJobs(ctx context.Context, jobs []*GenerationJob) error {
	if len(jobs) == 0 {
		return nil
	}
	now := time.Now()
	for _, j := range jobs {
		j.CreatedAt = now
		j.UpdatedAt = now
	}
	return s.db.WithContext(ctx).Create(jobs).Error
}

func (s *GormStore) GetGenerationJob(ctx context.Context, id string) (*GenerationJob, error) {
	var j GenerationJob
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (s *GormStore) UpdateGenerationJob(ctx context.Context, job *GenerationJob) error {
	job.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&GenerationJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"state":      job.State,
		"clip_ref":   job.ClipRef,
		"error":      job.Error,
		"updated_at": job.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListBatchJobs(ctx context.Context, batchID string) ([]*GenerationJob, error) {
	var jobs []*GenerationJob
	err := s.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("prompt_index ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *GormStore) CreateStitchJob(ctx context.Context, job *StitchJob) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GormStore) GetStitchJob(ctx context.Context, id string) (*StitchJob, error) {
	var j StitchJob
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

func (s *GormStore) UpdateStitchJob(ctx context.Context, job *StitchJob) error {
	job.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&StitchJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"state":      job.State,
		"result_ref": job.ResultRef,
		"error":      job.Error,
		"updated_at": job.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
