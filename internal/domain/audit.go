package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AuditEntry is one row of the tamper-evident action log. PreviousHash is the
// chain hash of the preceding entry ("" for the first entry).
type AuditEntry struct {
	ID           int64  `json:"id,omitempty"`
	TimestampMs  int64  `json:"timestampMs"`
	UserID       string `json:"userId"`
	ActionType   string `json:"actionType"` // e.g. "alarm.acknowledge", "patient.admit"
	TargetType   string `json:"targetType"`
	TargetID     string `json:"targetId"`
	Details      string `json:"details"`
	PreviousHash string `json:"previousHash"`
}

// ChainHash returns the SHA-256 hex digest of the entry's content, including
// its own PreviousHash so the chain is transitive: altering any historical
// row changes every hash after it.
func (e AuditEntry) ChainHash() string {
	content := fmt.Sprintf("%d|%d|%s|%s|%s|%s|%s|%s",
		e.ID, e.TimestampMs, e.UserID, e.ActionType,
		e.TargetType, e.TargetID, e.Details, e.PreviousHash)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
