// Package migration imports the legacy site's MongoDB export into
// Postgres. It reads raw .bson collection dumps document by document
// and batch-inserts through bun.
package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/acc-community/acc/acc/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
)

type Migrator struct {
	pgDB          *bun.DB
	usersPath     string
	treasuresPath string
	batchSize     int
	stats         MigrationStats

	// Legacy Mongo ids mapped to the Postgres ids assigned on insert.
	userIDsByName map[string]int64
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:          pgDB,
		usersPath:     filepath.Join(dataDir, "users.bson"),
		treasuresPath: filepath.Join(dataDir, "treasureoffers.bson"),
		batchSize:     1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		userIDsByName: make(map[string]int64),
	}
}

// SetBatchSize overrides the default insert batch size.
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// MigrateAll runs the whole import: users first, then treasure offers
// which reference them.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	if err := m.MigrateUsers(ctx); err != nil {
		return err
	}
	if err := m.MigrateTreasureOffers(ctx); err != nil {
		return err
	}

	slog.Info("Migration finished",
		slog.Duration("took", time.Since(m.stats.StartTime)))
	for table, stats := range m.stats.Tables {
		slog.Info("Table imported",
			slog.String("table", table),
			slog.Int("read", stats.Read),
			slog.Int("inserted", stats.Inserted),
			slog.Int("skipped", stats.Skipped))
	}
	return nil
}

func (m *Migrator) MigrateUsers(ctx context.Context) error {
	stats := &TableStats{}
	m.stats.Tables["users"] = stats

	slog.Info("Starting user migration", slog.String("path", m.usersPath))

	var mongoUsers []MongoUser
	err := readBSONFile(m.usersPath, func(doc []byte) error {
		var mu MongoUser
		if err := bson.Unmarshal(doc, &mu); err != nil {
			return fmt.Errorf("failed to decode users BSON: %w", err)
		}
		mongoUsers = append(mongoUsers, mu)
		return nil
	})
	if err != nil {
		return err
	}
	stats.Read = len(mongoUsers)

	users, skipped := dedupeUsers(mongoUsers)
	stats.Skipped += skipped

	for start := 0; start < len(users); start += m.batchSize {
		end := start + m.batchSize
		if end > len(users) {
			end = len(users)
		}
		batch := users[start:end]

		// On a re-run conflicting rows are skipped, so the ids RETURNING
		// would hand back stop lining up with the batch. Insert blind,
		// then read the ids back by username below.
		res, err := m.pgDB.NewInsert().
			Model(&batch).
			On("CONFLICT (username) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert user batch: %w", err)
		}
		if inserted, err := res.RowsAffected(); err == nil {
			stats.Inserted += int(inserted)
			stats.Skipped += len(batch) - int(inserted)
		}
	}

	if err := m.loadUserIDs(ctx, users); err != nil {
		return err
	}

	slog.Info("Users imported",
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped))
	return nil
}

// loadUserIDs fills the username -> id map from the database, covering
// both freshly inserted rows and rows that already existed.
func (m *Migrator) loadUserIDs(ctx context.Context, users []*models.User) error {
	usernames := make([]string, 0, len(users))
	for _, u := range users {
		usernames = append(usernames, u.Username)
	}
	if len(usernames) == 0 {
		return nil
	}

	var rows []*models.User
	err := m.pgDB.NewSelect().
		Model(&rows).
		Column("id", "username").
		Where("username IN (?)", bun.In(usernames)).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to read back user ids: %w", err)
	}

	for _, row := range rows {
		m.userIDsByName[row.Username] = row.ID
	}
	return nil
}

// dedupeUsers converts the raw dump, keeping the latest record per
// username and dropping unnamed ones. Returns the skipped count.
func dedupeUsers(mongoUsers []MongoUser) ([]*models.User, int) {
	skipped := 0
	byName := make(map[string]*models.User, len(mongoUsers))
	order := make([]string, 0, len(mongoUsers))

	for _, mu := range mongoUsers {
		if mu.Username == "" {
			skipped++
			continue
		}
		if _, exists := byName[mu.Username]; exists {
			skipped++
		} else {
			order = append(order, mu.Username)
		}
		byName[mu.Username] = convertUser(mu)
	}

	users := make([]*models.User, 0, len(byName))
	for _, name := range order {
		users = append(users, byName[name])
	}
	return users, skipped
}

func (m *Migrator) MigrateTreasureOffers(ctx context.Context) error {
	stats := &TableStats{}
	m.stats.Tables["treasure_offers"] = stats

	slog.Info("Starting treasure offer migration", slog.String("path", m.treasuresPath))

	var offers []*models.TreasureOffer
	err := readBSONFile(m.treasuresPath, func(doc []byte) error {
		var mo MongoTreasureOffer
		if err := bson.Unmarshal(doc, &mo); err != nil {
			return fmt.Errorf("failed to decode treasure BSON: %w", err)
		}
		stats.Read++

		offer := m.convertTreasureOffer(mo)
		if offer == nil {
			stats.Skipped++
			return nil
		}
		offers = append(offers, offer)
		return nil
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(offers); start += m.batchSize {
		end := start + m.batchSize
		if end > len(offers) {
			end = len(offers)
		}
		batch := offers[start:end]

		if _, err := m.pgDB.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert treasure batch: %w", err)
		}
		stats.Inserted += len(batch)
	}

	slog.Info("Treasure offers imported", slog.Int("count", stats.Inserted))
	return nil
}

func convertUser(mu MongoUser) *models.User {
	user := &models.User{
		Username:       mu.Username,
		Bells:          mu.Bells,
		TOSAccepted:    mu.TOSAccepted,
		BanDescription: mu.BanDescription,
		Signature:      mu.Signature,
	}
	if mu.LastActive != nil {
		user.LastActive = *mu.LastActive
	}
	if mu.Created != nil {
		user.CreatedAt = *mu.Created
	}
	return user
}

// convertTreasureOffer maps a legacy offer. Offers whose owner was not
// imported are dropped.
func (m *Migrator) convertTreasureOffer(mo MongoTreasureOffer) *models.TreasureOffer {
	userID := mo.UserID
	if userID == 0 {
		userID = m.userIDsByName[mo.Username]
	}
	if userID == 0 {
		return nil
	}

	offerType := models.TreasureType(mo.Type)
	switch offerType {
	case models.TreasureAmount, models.TreasureJackpot, models.TreasureWisp:
	default:
		offerType = models.TreasureAmount
	}

	offer := &models.TreasureOffer{
		UserID:         userID,
		Bells:          mo.Bells,
		Type:           offerType,
		RedeemedUserID: mo.RedeemedUserID,
	}
	if mo.OfferTime != nil {
		offer.OfferTime = *mo.OfferTime
	} else {
		offer.OfferTime = m.stats.StartTime
	}
	return offer
}

// readBSONFile streams a raw mongodump .bson file: each document is a
// little-endian int32 length followed by the rest of the document.
func readBSONFile(path string, handle func(doc []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open BSON file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		lengthBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, lengthBytes); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return fmt.Errorf("invalid document length: %d", length)
		}

		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return fmt.Errorf("failed to read document bytes: %w", err)
		}

		if err := handle(append(lengthBytes, docBytes...)); err != nil {
			return err
		}
	}
	return nil
}
