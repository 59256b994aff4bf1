package bankinfo

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"gorm.io/datatypes"

	"github.com/tair/course-settlement/internal/settlement/domain"
)

const nonceSize = 24

var ErrUnseal = errors.New("bank info could not be decrypted")

// sealed is the at-rest form stored in settlement_payments.bank_info.
type sealed struct {
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	AccountLast4  string `json:"account_last4"`
	AccountNumber string `json:"account_number_sealed"`
}

// Sealer encrypts payout account numbers with a static secretbox key
type Sealer struct {
	key [32]byte
}

// NewSealer creates a sealer for key
func NewSealer(key [32]byte) *Sealer {
	return &Sealer{key: key}
}

// Seal returns the JSON column value for account. A nil account seals to nil.
func (s *Sealer) Seal(account *domain.BankAccount) (datatypes.JSON, error) {
	if account == nil {
		return nil, nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(account.AccountNumber), &nonce, &s.key)

	raw, err := json.Marshal(sealed{
		BankName:      account.BankName,
		AccountHolder: account.AccountHolder,
		AccountLast4:  last4(account.AccountNumber),
		AccountNumber: base64.StdEncoding.EncodeToString(box),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bank info: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// Open reverses Seal
func (s *Sealer) Open(value datatypes.JSON) (*domain.BankAccount, error) {
	if len(value) == 0 {
		return nil, nil
	}

	var stored sealed
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bank info: %w", err)
	}
	box, err := base64.StdEncoding.DecodeString(stored.AccountNumber)
	if err != nil || len(box) < nonceSize {
		return nil, ErrUnseal
	}

	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnseal
	}

	return &domain.BankAccount{
		BankName:      stored.BankName,
		AccountHolder: stored.AccountHolder,
		AccountNumber: string(plain),
	}, nil
}

// Masked returns the account with everything but the last four digits hidden,
// without decrypting.
func Masked(value datatypes.JSON) map[string]string {
	if len(value) == 0 {
		return nil
	}
	var stored sealed
	if err := json.Unmarshal(value, &stored); err != nil {
		return nil
	}
	return map[string]string{
		"bank_name":      stored.BankName,
		"account_holder": stored.AccountHolder,
		"account_number": "****" + stored.AccountLast4,
	}
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
