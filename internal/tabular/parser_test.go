package tabular

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestParse_PriorityColumnAndBlankRows(t *testing.T) {
	data := []byte("Feedback\nThe export button is broken\n\n   \n")

	res, err := Parse(data, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "Feedback", res.Column)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "The export button is broken", res.Records[0].Text)
	assert.Empty(t, res.Records[0].Metadata)
}

func TestParse_PriorityOrderWins(t *testing.T) {
	data := []byte("Comment,Summary,Description\nc1,s1,d1\n")

	res, err := Parse(data, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "Description", res.Column)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "d1", res.Records[0].Text)
	assert.Equal(t, []string{"Comment", "Summary"}, res.Records[0].Metadata.Keys())
}

func TestParse_HeaderMatchIsCaseInsensitiveAndTrimmed(t *testing.T) {
	res, err := Parse([]byte("id,  FEEDBACK  \n1,slow\n"), DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, "FEEDBACK", res.Column)
}

func TestParse_FallbackToFirstLongTextColumn(t *testing.T) {
	data := []byte("id,code,notes\n1,AB-1,The checkout page keeps timing out\n2,AB-2,Love the new dashboard\n")

	res, err := Parse(data, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, "notes", res.Column)
	require.Len(t, res.Records, 2)
	v, ok := res.Records[0].Metadata.Get("code")
	assert.True(t, ok)
	assert.Equal(t, "AB-1", v)
}

func TestParse_FallbackSkipsNumericColumns(t *testing.T) {
	data := []byte("amount,remark\n12345678901234,short\n")

	_, err := Parse(data, DefaultLimits())
	assert.ErrorIs(t, err, ErrNoFeedbackColumn)
}

func TestParse_NoFeedbackColumn(t *testing.T) {
	data := []byte("id,code\n1,AB\n2,CD\n")

	_, err := Parse(data, DefaultLimits())
	assert.ErrorIs(t, err, ErrNoFeedbackColumn)
}

func TestParse_SourcePromotion(t *testing.T) {
	data := []byte("Feedback,Issue Type,Region\nCrashes on login,Bug,EU\nNice work,,US\n")

	res, err := Parse(data, DefaultLimits())
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "Bug", res.Records[0].Source)
	assert.Equal(t, []string{"Issue Type", "Region"}, res.Records[0].Metadata.Keys())
	assert.Equal(t, "", res.Records[1].Source)
	assert.Equal(t, []string{"Region"}, res.Records[1].Metadata.Keys())
}

func TestParse_Limits(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := Parse(nil, DefaultLimits())
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := Parse([]byte("feedback\n"), DefaultLimits())
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := Parse([]byte("feedback\nsomething useful\n"), Limits{MaxBytes: 8, MaxRows: 10})
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("too many rows", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("feedback\n")
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, "row %d\n", i)
		}
		_, err := Parse([]byte(b.String()), Limits{MaxBytes: 1024, MaxRows: 3})
		assert.ErrorIs(t, err, ErrTooManyRows)

		res, err := Parse([]byte(b.String()), Limits{MaxBytes: 1024, MaxRows: 4})
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalRows)
	})

	t.Run("binary", func(t *testing.T) {
		_, err := Parse([]byte("PK\x03\x04\x14\x00\x00\x00\x08\x00binarycontent\x00\x00"), DefaultLimits())
		assert.ErrorIs(t, err, ErrInvalidFormat)
	})
}

func TestParse_DelimiterSniffing(t *testing.T) {
	cases := map[string]string{
		"semicolon": "id;feedback;team\n1;\"slow; very slow\";core\n",
		"tab":       "id\tfeedback\tteam\n1\tslow; very slow\tcore\n",
		"pipe":      "id|feedback|team\n1|slow; very slow|core\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := Parse([]byte(data), DefaultLimits())
			require.NoError(t, err)
			require.Len(t, res.Records, 1)
			assert.Equal(t, "slow; very slow", res.Records[0].Text)
			assert.Equal(t, []string{"id", "team"}, res.Records[0].Metadata.Keys())
		})
	}
}

func TestParse_RaggedRowsAndHeaderNames(t *testing.T) {
	data := []byte("feedback,,feedback\nfirst,a\nsecond,b,c,extra\n")

	res, err := Parse(data, DefaultLimits())
	require.NoError(t, err)

	assert.Equal(t, []string{"feedback", "column_2", "column_3"}, res.Headers)
	require.Len(t, res.Records, 2)
	assert.Equal(t, []string{"column_2"}, res.Records[0].Metadata.Keys())
	assert.Equal(t, []string{"column_2", "column_3", "column_4"}, res.Records[1].Metadata.Keys())
}

func TestParse_SingleColumnKeepsCommasInText(t *testing.T) {
	res, err := Parse([]byte("Feedback\nGreat app, but slow on login\nfine\n"), DefaultLimits())
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Great app, but slow on login", res.Records[0].Text)
	assert.Empty(t, res.Records[0].Metadata.Keys())
	assert.Equal(t, "fine", res.Records[1].Text)
}

func TestParse_CellsBeyondHeaderBecomeMetadata(t *testing.T) {
	res, err := Parse([]byte("id,feedback\n7,checkout times out,mobile,\n"), DefaultLimits())
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "checkout times out", rec.Text)
	assert.Equal(t, []string{"id", "column_3"}, rec.Metadata.Keys())
	v, ok := rec.Metadata.Get("column_3")
	require.True(t, ok)
	assert.Equal(t, "mobile", v)
}

func TestParse_BOMHandling(t *testing.T) {
	t.Run("utf-8 bom", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Feedback\nworks\n")...)
		res, err := Parse(data, DefaultLimits())
		require.NoError(t, err)
		assert.Equal(t, "Feedback", res.Column)
	})

	t.Run("utf-16le bom", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		data, err := enc.Bytes([]byte("Feedback,Source\nÜbersetzung fehlt,app\n"))
		require.NoError(t, err)

		res, err := Parse(data, DefaultLimits())
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "Übersetzung fehlt", res.Records[0].Text)
		assert.Equal(t, "app", res.Records[0].Source)
	})
}

func TestMetadata_Bounds(t *testing.T) {
	var m Metadata
	for i := 0; i < MaxMetadataKeys; i++ {
		require.True(t, m.Set(fmt.Sprintf("k%d", i), "v"))
	}
	assert.False(t, m.Set("overflow", "v"))
	assert.True(t, m.Set("k0", "updated"))
	assert.Len(t, m, MaxMetadataKeys)

	long := strings.Repeat("é", MaxMetadataValueRunes+10)
	var n Metadata
	n.Set("long", long)
	v, _ := n.Get("long")
	assert.Equal(t, MaxMetadataValueRunes, len([]rune(v)))
}

func TestMetadata_JSONKeepsOrder(t *testing.T) {
	m := Metadata{{Key: "zeta", Value: "1"}, {Key: "alpha", Value: "2"}, {Key: "mid", Value: "3"}}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"1","alpha":"2","mid":"3"}`, string(b))

	var back Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":"1","alpha":2,"mid":"3"}`), &back))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, back.Keys())
	v, _ := back.Get("alpha")
	assert.Equal(t, "2", v)
}
