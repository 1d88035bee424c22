package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fingerprint returns the cache identity of a raw input string.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ResultCache is the Mongo document for one cached normalization.
type ResultCache struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	RawFingerprint   string              `bson:"raw_fingerprint" json:"raw_fingerprint"`     // sha256 of the raw input
	RawAddress       string              `bson:"raw_address" json:"raw_address"`             // input as received
	NormalizedText   string              `bson:"normalized_text" json:"normalized_text"`     // cleaned full text
	Result           NormalizationResult `bson:"result" json:"result"`                       // full pipeline output
	Confidence       float64             `bson:"confidence" json:"confidence"`               // copied for index queries
	TableVersion     string              `bson:"table_version" json:"table_version"`         // abbreviation table revision
	ManuallyVerified bool                `bson:"manually_verified" json:"manually_verified"` // confirmed by a reviewer
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`               // first store
	LastAccessed     time.Time           `bson:"last_accessed" json:"last_accessed"`         // most recent hit
	AccessCount      int                 `bson:"access_count" json:"access_count"`           // total hits
}

// NewResultCache wraps a result in a fresh cache document.
func NewResultCache(result *NormalizationResult, tableVersion string) *ResultCache {
	return &ResultCache{
		RawFingerprint:   Fingerprint(result.Raw),
		RawAddress:       result.Raw,
		NormalizedText:   result.NormalizedText,
		Result:           *result,
		Confidence:       result.Confidence,
		TableVersion:     tableVersion,
		ManuallyVerified: false,
		CreatedAt:        time.Now(),
		LastAccessed:     time.Now(),
		AccessCount:      1,
	}
}

// UpdateAccess records one more cache hit.
func (rc *ResultCache) UpdateAccess() {
	rc.LastAccessed = time.Now()
	rc.AccessCount++
}

// IsExpired reports whether the entry has outlived its TTL.
func (rc *ResultCache) IsExpired(ttlHours int) bool {
	return time.Since(rc.CreatedAt) > time.Duration(ttlHours)*time.Hour
}

// IsValidTableVersion reports whether the entry was produced with the
// abbreviation table currently in use. Stale entries must be recomputed.
func (rc *ResultCache) IsValidTableVersion(currentVersion string) bool {
	return rc.TableVersion == currentVersion
}
