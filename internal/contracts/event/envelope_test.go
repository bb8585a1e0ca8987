package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"QuotaReserved","payload":{"bookingId":7,"reservationId":"42"},"messageId":"m-1"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeQuotaReserved, env.Type)
	assert.Equal(t, "m-1", env.MessageID)
	assert.JSONEq(t, `{"bookingId":7,"reservationId":"42"}`, string(env.Payload))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"payload":{"bookingId":1}}`))
	assert.Error(t, err, "missing type must be treated as poison")

	_, err = Decode([]byte(`{"type":"   ","payload":{}}`))
	assert.Error(t, err)
}

func TestDedupIDPrefersMessageID(t *testing.T) {
	env := Envelope{Type: TypeAccessCodeIssued, MessageID: "m-9"}
	assert.Equal(t, "m-9", env.DedupID(5))
}

func TestDedupIDFallsBackToTypeAndBooking(t *testing.T) {
	env := Envelope{Type: TypeAccessCodeIssued}
	assert.Equal(t, "AccessCodeIssued:5", env.DedupID(5))

	env.MessageID = "  "
	assert.Equal(t, "AccessCodeIssued:5", env.DedupID(5))
}
