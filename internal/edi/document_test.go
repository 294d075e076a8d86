package edi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	code, err := ParseDocumentType("856")
	require.NoError(t, err)
	assert.Equal(t, ShippingNotice, code)

	code, err = ParseDocumentType(" Invoice ")
	require.NoError(t, err)
	assert.Equal(t, Invoice, code)

	_, err = ParseDocumentType("997")
	assert.Error(t, err)
}

func TestInboundPriority(t *testing.T) {
	assert.Equal(t, []DocumentType{"846", "855", "856", "810"}, InboundPriority)
	assert.True(t, InventoryAdvice.Inbound())
	assert.False(t, PurchaseOrder.Inbound())
	assert.False(t, PaymentAdvice.Inbound())
	assert.Equal(t, "payment_advice", PaymentAdvice.Name())
	assert.Equal(t, "unknown", DocumentType("999").Name())
}

func TestConfirmationOrderStatus(t *testing.T) {
	assert.Equal(t, "confirmed", ConfirmationOrderStatus("accepted"))
	assert.Equal(t, "processing", ConfirmationOrderStatus("Accepted"))
	assert.Equal(t, "processing", ConfirmationOrderStatus(" accepted "))
	assert.Equal(t, "rejected", ConfirmationOrderStatus("rejected"))
	assert.Equal(t, "processing", ConfirmationOrderStatus("pending"))
	assert.Equal(t, "processing", ConfirmationOrderStatus(""))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-09", "20240309", "2024-03-09T00:00:00Z", "2024-03-09T00:00:00"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, err := ParseDate("09/03/2024")
	assert.Error(t, err)

	empty, err := ParseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, empty)
}
