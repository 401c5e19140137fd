package cli

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"traking-shop/internal/catalog"
)

func TestFinishAssign(t *testing.T) {
	var buf bytes.Buffer
	res := catalog.AssignResult{Linked: 2, Skipped: 1, DistributionByWeapon: map[string]int{"Vandal": 2}}
	assert.NoError(t, finishAssign(&buf, res, nil))
	assert.Contains(t, buf.String(), "Linked 2 skins")
	assert.Contains(t, buf.String(), "Vandal")

	buf.Reset()
	assert.NoError(t, finishAssign(&buf, catalog.AssignResult{}, catalog.ErrNothingToAssign))
	assert.Contains(t, buf.String(), "Nothing to assign")

	buf.Reset()
	pe := &catalog.PersistenceError{Op: "insert account skins", Count: 3, Err: errors.New("boom")}
	err := finishAssign(&buf, catalog.AssignResult{Failed: 3}, pe)
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "3 failed")

	buf.Reset()
	assert.ErrorIs(t, finishAssign(&buf, catalog.AssignResult{}, catalog.ErrProductNotFound), catalog.ErrProductNotFound)
	assert.Empty(t, buf.String())
}

func TestPrintImportResult(t *testing.T) {
	var buf bytes.Buffer
	printImportResult(&buf, catalog.ImportResult{Created: 3, Updated: 1, Failed: 1, Total: 5, Errors: []string{"Oni Phantom: boom"}})
	assert.Contains(t, buf.String(), "3 created, 1 updated, 1 failed of 5")
	assert.Contains(t, buf.String(), "Oni Phantom: boom")
}
