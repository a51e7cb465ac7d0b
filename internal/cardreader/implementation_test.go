package cardreader

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardValidation(t *testing.T) {
	future := time.Now().AddDate(1, 0, 0)

	_, err := NewCard("123", "John Doe", future, CardDebit)
	assert.Error(t, err, "card number below minimum length")

	_, err = NewCard("1234567890123456", "", future, CardDebit)
	assert.Error(t, err)

	card, err := NewCard("1234567890123456", "John Doe", future, CardDebit)
	require.NoError(t, err)
	assert.True(t, card.IsActive)
	assert.False(t, card.Expired())

	// Past expiry constructs, but never as an active card.
	expired, err := NewCard("1234567890123456", "John Doe", time.Now().AddDate(0, -1, 0), CardDebit)
	require.NoError(t, err)
	assert.False(t, expired.IsActive)
	assert.True(t, expired.Expired())
}

func TestCardMaskedNumber(t *testing.T) {
	card := &Card{CardNumber: "1234567890123456"}
	assert.Equal(t, "************3456", card.MaskedNumber())
}

func TestSimulatedReaderReadCard(t *testing.T) {
	reader := NewSimulatedReader()
	reader.AddCard("1234567890123456", "John Doe", time.Now().AddDate(1, 0, 0), CardDebit)
	reader.AddCard("3456789012345678", "Invalid User", time.Now().AddDate(0, -1, 0), CardDebit)
	ctx := context.Background()

	card, err := reader.ReadCard(ctx, "1234567890123456")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", card.HolderName)
	assert.True(t, reader.CardInserted())

	require.NoError(t, reader.EjectCard(ctx))
	assert.False(t, reader.CardInserted())

	_, err = reader.ReadCard(ctx, "9999999999999999")
	require.ErrorIs(t, err, ErrInvalidCard)
	assert.False(t, reader.CardInserted())

	_, err = reader.ReadCard(ctx, "3456789012345678")
	require.ErrorIs(t, err, ErrInvalidCard)

	_, err = reader.ReadCard(ctx, "")
	require.ErrorIs(t, err, ErrInvalidCard)
}
