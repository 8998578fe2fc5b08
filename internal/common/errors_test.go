package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatError_UnwrapsCause(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := fmt.Errorf("import: %w", &FormatError{Path: "a.xlsx", Err: cause})

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "a.xlsx", fe.Path)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cannot read a.xlsx")
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{Article: "A1", Requested: 8, Limit: 7}
	assert.Equal(t, "insufficient stock for A1: requested 8, available 7", err.Error())
}

func TestTransportError_Message(t *testing.T) {
	withStatus := &TransportError{URL: "http://x", Status: 404}
	assert.Equal(t, "download http://x: http status 404", withStatus.Error())

	cause := errors.New("connection refused")
	noStatus := &TransportError{URL: "http://x", Err: cause}
	assert.ErrorIs(t, noStatus, cause)
	assert.Contains(t, noStatus.Error(), "connection refused")

	both := &TransportError{URL: "http://x", Status: 403, Err: errors.New("not shared")}
	assert.Equal(t, "download http://x: http status 403: not shared", both.Error())
}

func TestSchemaError_Message(t *testing.T) {
	assert.Equal(t, `required column "Артикул" is missing`, (&SchemaError{Column: "Артикул"}).Error())
}
