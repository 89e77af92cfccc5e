package migration

import "time"

// MongoUser mirrors the legacy site's users collection. Only the
// fields carried into Postgres are mapped.
type MongoUser struct {
	ID             string     `bson:"_id"`
	Username       string     `bson:"username"`
	Bells          int64      `bson:"bells"`
	TOSAccepted    bool       `bson:"tosAccepted"`
	BanDescription string     `bson:"banDescription"`
	Signature      string     `bson:"signature"`
	LastActive     *time.Time `bson:"lastActive"`
	Created        *time.Time `bson:"created"`
}

// MongoTreasureOffer mirrors the legacy treasure_offers collection.
type MongoTreasureOffer struct {
	ID             string     `bson:"_id"`
	UserID         int64      `bson:"userId"`
	Username       string     `bson:"username"`
	Bells          int64      `bson:"bells"`
	Type           string     `bson:"type"`
	OfferTime      *time.Time `bson:"offerTime"`
	RedeemedUserID *int64     `bson:"redeemedUserId"`
}

// TableStats tracks per-table import progress.
type TableStats struct {
	Read     int
	Inserted int
	Skipped  int
}

type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
}
