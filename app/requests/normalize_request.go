package requests

import "github.com/address-normalizer/app/models"

// NormalizeAddressRequest asks for one raw address to be normalized.
type NormalizeAddressRequest struct {
	Address string           `json:"address" binding:"required"` // raw postal address
	Options NormalizeOptions `json:"options,omitempty"`
}

// NormalizeOptions tunes a single request.
type NormalizeOptions struct {
	UseCache bool `json:"use_cache,omitempty"` // consult and fill the result cache
}

// NormalizePhoneRequest asks for one phone number to be normalized.
type NormalizePhoneRequest struct {
	Phone string `json:"phone" binding:"required"` // raw US or Canadian phone number
}

// BatchNormalizeRequest submits addresses for background processing.
type BatchNormalizeRequest struct {
	Addresses []string         `json:"addresses" binding:"required,min=1,max=20000"` // raw addresses, 20k max per job
	Options   NormalizeOptions `json:"options,omitempty"`
}

// ReviewActionRequest approves or rejects a review queue entry.
type ReviewActionRequest struct {
	ReviewerID string `json:"reviewer_id" binding:"required"` // identity of the acting reviewer
}

// ReviewCorrectRequest replaces a queue entry's tags with
// reviewer-supplied values.
type ReviewCorrectRequest struct {
	ReviewerID string            `json:"reviewer_id" binding:"required"` // identity of the acting reviewer
	Tags       map[string]string `json:"tags" binding:"required"`        // corrected addr:* tags
}

// ImportAliasesRequest loads curated aliases into the store.
type ImportAliasesRequest struct {
	Aliases        []models.LearnedAlias `json:"aliases" binding:"required"` // batch of observed -> canonical mappings
	UpdateSynonyms bool                  `json:"update_synonyms,omitempty"`  // push the refreshed set into search synonyms
}
