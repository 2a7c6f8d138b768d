package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_TypeLabel(t *testing.T) {
	tbl := Default()

	assert.Equal(t, "裝備 - 武器", tbl.TypeLabel("Eqp", "Weapon"))
	assert.Equal(t, "消耗 - Scroll", tbl.TypeLabel("Use", "Scroll"), "unknown sub-type renders as itself")
	assert.Equal(t, "", tbl.TypeLabel("Eqp", ""))
	assert.Equal(t, "", tbl.TypeLabel("", "Weapon"))
	assert.Equal(t, "套服", tbl.CategoryName("Overall"))
}

func TestParse(t *testing.T) {
	tbl, err := Parse([]byte("type:\n  Eqp: Equip\nsub_type:\n  Cap: Hat\n"))
	require.NoError(t, err)
	assert.Equal(t, "Equip - Hat", tbl.TypeLabel("Eqp", "Cap"))

	_, err = Parse([]byte("type: [unclosed"))
	assert.Error(t, err)
}
