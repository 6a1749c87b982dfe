package item

import (
	"time"

	"claimflow/request"
)

// Item captures the subset of catalog data the request layer needs when
// building a claim: who holds the item and what it is worth.
type Item struct {
	ID                string
	Name              string
	Category          string
	DeclaredValue     float64
	HoldingEnterprise request.EnterpriseType
	FoundLocation     string
	CreatedAt         time.Time
}
