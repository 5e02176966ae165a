// Package storage persists scan results in a SQLite report database so
// findings can be reviewed and marked across runs.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/issue"
	"github.com/alpha1e0/kiwi/internal/model"
	"github.com/alpha1e0/kiwi/internal/safefile"
)

var ErrNotFound = errors.New("issue record not found")

// ScanInfo is one recorded scan.
type ScanInfo struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Root       string    `json:"root"`
	Scopes     string    `json:"-"`
	TotalLines int       `json:"total_lines"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScopeStats decodes the per-scope line counts stored with the scan.
func (s ScanInfo) ScopeStats() (intake.ScopeStats, error) {
	stats := intake.ScopeStats{}
	if s.Scopes == "" {
		return stats, nil
	}
	if err := json.Unmarshal([]byte(s.Scopes), &stats); err != nil {
		return nil, fmt.Errorf("decode scope stats of scan %d: %w", s.ID, err)
	}
	return stats, nil
}

// IssueRecord is the persisted form of a model.Issue plus its review state.
type IssueRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ScanID     uint   `gorm:"index"`
	RuleID     string `gorm:"index"`
	Name       string
	Scope      string
	Severity   int `gorm:"index"`
	Confidence int
	References string
	Pattern    string
	Filename   string `gorm:"index"`
	Line       int
	MatchText  string
	Context    string
	Status     int `gorm:"index"`
	Comment    string
	CreatedAt  time.Time
}

// Issue rebuilds the core finding from the record.
func (r IssueRecord) Issue() (model.Issue, error) {
	ctx, err := model.DecodeContext(r.Context)
	if err != nil {
		return model.Issue{}, fmt.Errorf("record %d: %w", r.ID, err)
	}
	var refs []string
	if r.References != "" {
		refs = strings.Split(r.References, "\n")
	}
	return model.Issue{
		ID:         r.RuleID,
		Name:       r.Name,
		Scope:      r.Scope,
		Severity:   model.Level(r.Severity),
		Confidence: model.Level(r.Confidence),
		References: refs,
		Pattern:    r.Pattern,
		Filename:   r.Filename,
		Line:       r.Line,
		Context:    ctx,
	}, nil
}

// recordFrom stores filename relative to root, so the same tree scanned
// from another location (a re-extracted archive, "." versus an absolute
// path) produces the same records.
func recordFrom(scanID uint, root string, i model.Issue) IssueRecord {
	return IssueRecord{
		ScanID:     scanID,
		RuleID:     i.ID,
		Name:       i.Name,
		Scope:      i.Scope,
		Severity:   int(i.Severity),
		Confidence: int(i.Confidence),
		References: strings.Join(i.References, "\n"),
		Pattern:    i.Pattern,
		Filename:   relativeTo(root, i.Filename),
		Line:       i.Line,
		MatchText:  matchedText(i),
		Context:    model.EncodeContext(i.Context),
		Status:     int(model.StatusNew),
	}
}

func relativeTo(root, filename string) string {
	if root == "" {
		return filename
	}
	rel, err := filepath.Rel(root, filename)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return filename
	}
	return filepath.ToSlash(rel)
}

func matchedText(i model.Issue) string {
	for _, l := range i.Context {
		if l.Line == i.Line {
			return strings.TrimSpace(l.Text)
		}
	}
	return ""
}

// DB is an open report database.
type DB struct {
	conn   *gorm.DB
	path   string
	root   string
	scanID uint
}

// Open creates or opens the report database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("report database path is required")
	}
	dbPath, err := safefile.Target(path)
	if err != nil {
		return nil, fmt.Errorf("prepare report database: %w", err)
	}

	conn, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&ScanInfo{}, &IssueRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate report database: %w", err)
	}
	return &DB{conn: conn, path: dbPath}, nil
}

func (d *DB) Path() string { return d.path }

func (d *DB) Close() error {
	sqlDB, err := d.conn.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// RecordScan stores the scan header. Issues saved afterwards belong to it
// and are stored with file names relative to root.
func (d *DB) RecordScan(root string, stats intake.ScopeStats) (ScanInfo, error) {
	if stats == nil {
		stats = intake.ScopeStats{}
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return ScanInfo{}, fmt.Errorf("encode scope stats: %w", err)
	}
	info := ScanInfo{Root: root, Scopes: string(raw), TotalLines: stats.Total()}
	if err := d.conn.Create(&info).Error; err != nil {
		return ScanInfo{}, fmt.Errorf("record scan: %w", err)
	}
	d.scanID = info.ID
	d.root = root
	return info, nil
}

// SaveIssues stores issues under the current scan. An issue equivalent to
// one from an earlier scan (same rule, file, pattern and matched text) is
// saved as Old; a false-positive mark and its comment carry forward.
// It returns the number of issues that are New.
func (d *DB) SaveIssues(issues []model.Issue) (int, error) {
	fresh := 0
	err := d.conn.Transaction(func(tx *gorm.DB) error {
		for _, i := range issues {
			rec := recordFrom(d.scanID, d.root, i)

			var prior IssueRecord
			res := tx.Where("rule_id = ? AND filename = ? AND pattern = ? AND match_text = ? AND scan_id <> ?",
				rec.RuleID, rec.Filename, rec.Pattern, rec.MatchText, d.scanID).
				Order("id desc").Limit(1).Find(&prior)
			if res.Error != nil {
				return fmt.Errorf("look up prior issue: %w", res.Error)
			}
			switch {
			case res.RowsAffected == 0:
				fresh++
			case model.Status(prior.Status) == model.StatusFalsePositive:
				rec.Status = int(model.StatusFalsePositive)
				rec.Comment = prior.Comment
			default:
				rec.Status = int(model.StatusOld)
				rec.Comment = prior.Comment
			}

			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("save issue %s: %w", rec.RuleID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fresh, nil
}

// Scans lists recorded scans, oldest first.
func (d *DB) Scans() ([]ScanInfo, error) {
	var out []ScanInfo
	if err := d.conn.Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return out, nil
}

// Issues lists every record in insertion order.
func (d *DB) Issues() ([]IssueRecord, error) {
	var out []IssueRecord
	if err := d.conn.Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return out, nil
}

// Classified groups records by review status.
type Classified struct {
	New           []IssueRecord
	Old           []IssueRecord
	FalsePositive []IssueRecord
}

func (d *DB) Classified() (Classified, error) {
	records, err := d.Issues()
	if err != nil {
		return Classified{}, err
	}
	var out Classified
	for _, r := range records {
		switch model.Status(r.Status) {
		case model.StatusNew:
			out.New = append(out.New, r)
		case model.StatusOld:
			out.Old = append(out.Old, r)
		case model.StatusFalsePositive:
			out.FalsePositive = append(out.FalsePositive, r)
		}
	}
	return out, nil
}

// Mark sets the review status of one record. A nil comment keeps the
// stored one; an empty string clears it.
func (d *DB) Mark(id uint, status model.Status, comment *string) error {
	switch status {
	case model.StatusNew, model.StatusOld, model.StatusFalsePositive:
	default:
		return fmt.Errorf("invalid status %d", int(status))
	}
	fields := map[string]interface{}{"status": int(status)}
	if comment != nil {
		fields["comment"] = *comment
	}
	res := d.conn.Model(&IssueRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("mark issue %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// StatusCount is the number of records carrying one status.
type StatusCount struct {
	Status model.Status `json:"status"`
	Count  int          `json:"count"`
}

type Stats struct {
	Severity issue.Statistics `json:"severity"`
	Status   []StatusCount    `json:"status"`
}

// Statistics counts records per severity (High to Info) and per status
// (New, Old, FalsePositive).
func (d *DB) Statistics() (Stats, error) {
	var out Stats
	for _, level := range model.Levels() {
		var n int64
		if err := d.conn.Model(&IssueRecord{}).Where("severity = ?", int(level)).Count(&n).Error; err != nil {
			return Stats{}, fmt.Errorf("count severity %s: %w", level, err)
		}
		out.Severity = append(out.Severity, issue.Bucket{Severity: level, Count: int(n)})
	}
	for _, status := range []model.Status{model.StatusNew, model.StatusOld, model.StatusFalsePositive} {
		var n int64
		if err := d.conn.Model(&IssueRecord{}).Where("status = ?", int(status)).Count(&n).Error; err != nil {
			return Stats{}, fmt.Errorf("count status %s: %w", status, err)
		}
		out.Status = append(out.Status, StatusCount{Status: status, Count: int(n)})
	}
	return out, nil
}
