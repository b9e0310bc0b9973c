package model

import (
	"time"
)

// Document 열려 있는/열렸던 PDF 문서
type Document struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	SourcePath string    `gorm:"type:text;not null" json:"source_path"`
	PageCount  int       `gorm:"not null" json:"page_count"`
	// PageSizes 페이지별 포인트 크기 JSON ([{"width":..,"height":..},..])
	PageSizes string    `gorm:"type:jsonb;not null;default:'[]'" json:"page_sizes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Annotations []AnnotationRecord `gorm:"foreignKey:DocumentID" json:"annotations,omitempty"`
	ExportJobs  []ExportJob        `gorm:"foreignKey:DocumentID" json:"export_jobs,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}

// AnnotationRecord 주석 영속화 행 (payload는 변형별 JSON)
type AnnotationRecord struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	DocumentID string    `gorm:"type:varchar(36);not null;index:idx_annotation_doc_page" json:"document_id"`
	PageIndex  int       `gorm:"not null;index:idx_annotation_doc_page" json:"page_index"`
	Kind       string    `gorm:"type:varchar(32);not null" json:"kind"`
	Payload    string    `gorm:"type:jsonb;not null" json:"payload"`
	// ZIndex 페이지 내 그리기 순서 (append 순서 보존, 미러가 항상 채운다)
	ZIndex    int       `gorm:"not null" json:"z_index"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AnnotationRecord) TableName() string {
	return "annotation_records"
}

// ExportJob 백그라운드 PDF 베이크 작업
type ExportJob struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	DocumentID string     `gorm:"type:varchar(36);not null;index" json:"document_id"`
	OutputPath string     `gorm:"type:text" json:"output_path"`
	Status     string     `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"` // PENDING, DONE, FAILED
	Error      *string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (ExportJob) TableName() string {
	return "export_jobs"
}

// ExportStatus 값
const (
	ExportStatusPending = "PENDING"
	ExportStatusDone    = "DONE"
	ExportStatusFailed  = "FAILED"
)
