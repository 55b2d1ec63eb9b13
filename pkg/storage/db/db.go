package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

// Db stores documents in PostgreSQL. Signers and metadata are serialized
// as JSON columns: the core only ever reads and writes whole documents, so
// relational decomposition buys nothing here.
type Db struct {
	orm *gorm.DB
}

var _ model.DocumentStore = (*Db)(nil)

type documentRow struct {
	Id          string `gorm:"primaryKey"`
	Kind        int
	Title       string
	Content     string
	Metadata    string `gorm:"type:jsonb"`
	SigningMode int
	Status      int
	Signers     string `gorm:"type:jsonb"`
	CreatedBy   string
	CreatedAt   time.Time
	SignedAt    *time.Time
	ViewedAt    *time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

func New(dsn string) (*Db, error) {
	orm, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := orm.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Db{orm: orm}, nil
}

func (d *Db) Create(doc *models.Document) error {
	row, err := toRow(doc)
	if err != nil {
		return err
	}
	return d.orm.Create(row).Error
}

func (d *Db) Get(id string) (*models.Document, error) {
	var row documentRow
	err := d.orm.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (d *Db) Update(doc *models.Document) error {
	row, err := toRow(doc)
	if err != nil {
		return err
	}
	res := d.orm.Model(&documentRow{}).Where("id = ?", doc.Id).Updates(map[string]any{
		"title":     row.Title,
		"content":   row.Content,
		"metadata":  row.Metadata,
		"status":    row.Status,
		"signers":   row.Signers,
		"signed_at": row.SignedAt,
		"viewed_at": row.ViewedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (d *Db) List() ([]models.Document, error) {
	var rows []documentRow
	if err := d.orm.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Document, 0, len(rows))
	for i := range rows {
		doc, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (d *Db) Close() error {
	sqlDb, err := d.orm.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

func toRow(doc *models.Document) (*documentRow, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	signers, err := json.Marshal(doc.Signers)
	if err != nil {
		return nil, fmt.Errorf("marshal signers: %w", err)
	}
	return &documentRow{
		Id:          doc.Id,
		Kind:        int(doc.Kind),
		Title:       doc.Title,
		Content:     doc.Content,
		Metadata:    string(metadata),
		SigningMode: int(doc.SigningMode),
		Status:      int(doc.Status),
		Signers:     string(signers),
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt,
		SignedAt:    doc.SignedAt,
		ViewedAt:    doc.ViewedAt,
	}, nil
}

func fromRow(row *documentRow) (*models.Document, error) {
	doc := &models.Document{
		Id:          row.Id,
		Kind:        models.DocumentKind(row.Kind),
		Title:       row.Title,
		Content:     row.Content,
		SigningMode: models.SigningMode(row.SigningMode),
		Status:      models.DocumentStatus(row.Status),
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		SignedAt:    row.SignedAt,
		ViewedAt:    row.ViewedAt,
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", row.Id, err)
		}
	}
	if row.Signers != "" {
		if err := json.Unmarshal([]byte(row.Signers), &doc.Signers); err != nil {
			return nil, fmt.Errorf("unmarshal signers for %s: %w", row.Id, err)
		}
	}
	return doc, nil
}
