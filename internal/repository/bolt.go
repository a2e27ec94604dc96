package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

var errDuplicateID = errors.New("receipt id already stored")

// boltRepository keeps receipts as JSON values in a single bucket keyed by id.
type boltRepository struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// OpenBolt opens (or creates) an embedded bbolt file and ensures the receipt bucket exists.
func OpenBolt(path string, logger *slog.Logger) (ReceiptRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		logger.Error("failed to open bolt database", "path", path, "error", err)
		return nil, storageErr("open bolt", err)
	}
	repo := &boltRepository{db: db, logger: logger}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("opened bolt database", "path", path)
	return repo, nil
}

func (b *boltRepository) EnsureSchema(context.Context) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(receiptsTable))
		return err
	})
	if err != nil {
		return storageErr("create bucket", err)
	}
	return nil
}

func (b *boltRepository) Save(ctx context.Context, rec *entity.ScannedReceipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)

	data, err := json.Marshal(rec)
	if err != nil {
		return storageErr("marshal receipt", err)
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptsTable))
		key := []byte(rec.ID.String())
		if bucket.Get(key) != nil {
			return fmt.Errorf("%w: %s", errDuplicateID, rec.ID)
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		b.logger.Error("failed to save receipt", "id", rec.ID, "image_path", rec.ImagePath, "error", err)
		return storageErr("insert receipt", err)
	}
	b.logger.Debug("saved receipt", "id", rec.ID, "image_path", rec.ImagePath)
	return nil
}

func (b *boltRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ScannedReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *entity.ScannedReceipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptsTable)).Get([]byte(id.String()))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, storageErr("get receipt", err)
	}
	if rec == nil {
		return nil, common.NewAppError(common.CodeNotFound, "receipt "+id.String(), common.ErrNotFound)
	}
	return rec, nil
}

func (b *boltRepository) List(ctx context.Context, from, to *time.Time) ([]*entity.ScannedReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.ScannedReceipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsTable)).ForEach(func(_, v []byte) error {
			var rec entity.ScannedReceipt
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal receipt: %w", err)
			}
			if from != nil && rec.CreatedAt.Before(*from) {
				return nil
			}
			if to != nil && rec.CreatedAt.After(*to) {
				return nil
			}
			out = append(out, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("list receipts", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// HealthCheck reads the bucket; bbolt has no connection to ping.
func (b *boltRepository) HealthCheck(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(receiptsTable)) == nil {
			return errors.New("receipt bucket missing")
		}
		return nil
	})
	if err != nil {
		return common.NewAppError(common.CodeStorage, "ping failed", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

func (b *boltRepository) Close() error {
	b.logger.Info("closing bolt database")
	return b.db.Close()
}
