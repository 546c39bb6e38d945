package billing

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Receipt records one completed simulated transaction.
type Receipt struct {
	Reference string    `db:"reference"`
	UserID    string    `db:"user_id"`
	Product   Product   `db:"product"`
	Detail    string    `db:"detail"`
	Wallet    string    `db:"wallet"`
	Amount    float64   `db:"amount"`
	Fee       float64   `db:"fee"`
	Total     float64   `db:"total"`
	Token     string    `db:"token"`
	CreatedAt time.Time `db:"created_at"`
}

// ReceiptStore persists completed transactions for the audit trail.
type ReceiptStore interface {
	Save(ctx context.Context, r Receipt) error
	ByUser(ctx context.Context, userID string, limit int) ([]Receipt, error)
}

// NewReference returns a sortable receipt reference.
func NewReference() string {
	return ulid.Make().String()
}

// NewToken generates an opaque electricity token: five groups of four
// digits, the format prepaid meters accept.
func NewToken() string {
	var groups [5]string
	for i := range groups {
		groups[i] = fourDigits()
	}
	return strings.Join(groups[:], "-")
}

var tokenRand = rand.New(rand.NewSource(time.Now().UnixNano()))
var tokenMu sync.Mutex

func fourDigits() string {
	tokenMu.Lock()
	n := tokenRand.Intn(10000)
	tokenMu.Unlock()
	digits := []byte{'0', '0', '0', '0'}
	for i := 3; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}

// MemoryReceipts is the default in-process ReceiptStore.
type MemoryReceipts struct {
	mu       sync.RWMutex
	receipts []Receipt
}

// NewMemoryReceipts creates an empty in-memory store.
func NewMemoryReceipts() *MemoryReceipts {
	return &MemoryReceipts{}
}

// Save implements ReceiptStore.
func (m *MemoryReceipts) Save(_ context.Context, r Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, r)
	return nil
}

// ByUser implements ReceiptStore. Newest first.
func (m *MemoryReceipts) ByUser(_ context.Context, userID string, limit int) ([]Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Receipt
	for i := len(m.receipts) - 1; i >= 0; i-- {
		if m.receipts[i].UserID != userID {
			continue
		}
		out = append(out, m.receipts[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
