// Package readmodel mirrors finalized L2 blocks into a relational table
// for ad-hoc querying, using the teacher's jinzhu/gorm + go-sql-driver/mysql
// stack. This is a denormalized read model: the embedded KV store (§6)
// remains the single source of truth, and this mirror can be rebuilt from
// it at any time.
package readmodel

import (
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"

	"github.com/btcrollup/csmnode/csm"
	"github.com/btcrollup/csmnode/xlog"
)

var mirrorLogger = xlog.NewModuleLogger(xlog.ReadModel)

// FinalizedBlock is the gorm model for one row of the mirror table.
type FinalizedBlock struct {
	BlockID     string `gorm:"primary_key;size:64"`
	ParentID    string `gorm:"size:64"`
	Height      uint64 `gorm:"index"`
	FinalizedAt time.Time
}

func (FinalizedBlock) TableName() string { return "finalized_blocks" }

// Mirror writes finalization reports to the relational store.
type Mirror struct {
	db *gorm.DB
}

// Open connects to dsn and migrates the mirror table.
func Open(dsn string) (*Mirror, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(&FinalizedBlock{})
	return &Mirror{db: db}, nil
}

// RecordFinalization inserts one row per newly finalized block id in a
// report, keyed by its position in the finalized path (oldest-first) to
// derive height relative to the prior mirrored tip.
func (m *Mirror) RecordFinalization(report csm.FinalizeReport, baseHeight uint64) error {
	tx := m.db.Begin()
	parent := report.PrevTip
	for i, blkid := range report.Finalized {
		row := FinalizedBlock{
			BlockID:     blkid.String(),
			ParentID:    parent.String(),
			Height:      baseHeight + uint64(i) + 1,
			FinalizedAt: time.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return err
		}
		parent = blkid
	}
	if err := tx.Commit().Error; err != nil {
		mirrorLogger.Error("failed to commit finalization mirror", "err", err)
		return err
	}
	return nil
}

func (m *Mirror) Close() error { return m.db.Close() }
