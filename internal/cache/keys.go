package cache

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const absent = "all"

// InvoiceListParams is the part of a listing request that selects its rows.
type InvoiceListParams struct {
	BusinessID *uuid.UUID
	ClientID   *uuid.UUID
	Status     string
	Skip       int
	Limit      int
}

// InvoiceGenerationKey holds the per-user counter bumped on every invoice or payment write.
func InvoiceGenerationKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:invoices:gen", userID)
}

// InvoiceListKey is deterministic in its inputs. Bumping the generation orphans every older key.
func InvoiceListKey(userID uuid.UUID, generation int64, p InvoiceListParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "user:%s:invoices:v%d", userID, generation)
	fmt.Fprintf(&b, ":business_id=%s", optionalID(p.BusinessID))
	fmt.Fprintf(&b, ":client_id=%s", optionalID(p.ClientID))
	status := p.Status
	if status == "" {
		status = absent
	}
	fmt.Fprintf(&b, ":status=%s:skip=%d:limit=%d", status, p.Skip, p.Limit)
	return b.String()
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return absent
	}
	return id.String()
}
