package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshalNormalizesNumbers(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
		D ID `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":3,"b":"3","c":3.0,"d":null}`), &out))

	assert.Equal(t, ID("3"), out.A)
	assert.True(t, out.A.Equal(out.B))
	assert.True(t, out.A.Equal(out.C))
	assert.Equal(t, ID("3.0"), out.C, "wire text is kept")
	assert.True(t, out.D.IsZero())
}

func TestIDLargeAndPaddedStaysDistinct(t *testing.T) {
	big := ParseID("9007199254740993")
	assert.Equal(t, "9007199254740993", big.String())
	assert.False(t, big.Equal("9007199254740992"))
	assert.True(t, big.Equal("9007199254740993.00"))
	assert.True(t, ID("9007199254740992").Less(big))

	padded := ParseID("0012")
	assert.Equal(t, "0012", padded.String())
	assert.False(t, padded.Equal("12"))
	assert.True(t, ID("-0").Equal("0"))

	var out struct {
		A ID `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12345678901234567890123}`), &out))
	assert.Equal(t, ID("12345678901234567890123"), out.A)
	b, err := json.Marshal(out.A)
	require.NoError(t, err)
	assert.Equal(t, `12345678901234567890123`, string(b))
}

func TestIDKeepsOpaqueStrings(t *testing.T) {
	assert.Equal(t, ID("65e1f0a2b3c4d5e6f7a8b9c0"), ParseID("65e1f0a2b3c4d5e6f7a8b9c0"))
	assert.Equal(t, ID("1e5"), ParseID("1e5"))
	assert.Equal(t, ID("NaN"), ParseID("NaN"))
}

func TestIDMarshal(t *testing.T) {
	b, err := json.Marshal(ID("7"))
	require.NoError(t, err)
	assert.Equal(t, `7`, string(b))

	b, err = json.Marshal(ID("abc"))
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(b))

	b, err = json.Marshal(ID("0012"))
	require.NoError(t, err)
	assert.Equal(t, `"0012"`, string(b))
}

func TestIDLess(t *testing.T) {
	assert.True(t, ID("2").Less("10"))
	assert.False(t, ID("10").Less("2"))
	assert.True(t, ID("10").Less("abc"))
	assert.True(t, ID("abc").Less("abd"))
}

func TestRefMatches(t *testing.T) {
	tests := []struct {
		name string
		a, b Ref
		want bool
	}{
		{"id against _id", Ref{ID: "3"}, Ref{MongoID: "3"}, true},
		{"both _id equal", Ref{MongoID: "x", ID: "1"}, Ref{MongoID: "x", ID: "2"}, true},
		{"both _id differ", Ref{MongoID: "x", ID: "1"}, Ref{MongoID: "y", ID: "1"}, false},
		{"id only", Ref{ID: "4"}, Ref{ID: "4"}, true},
		{"id differs", Ref{ID: "4"}, Ref{ID: "5"}, false},
		{"provisional", Ref{TempID: "tmp-1"}, Ref{TempID: "tmp-1"}, true},
		{"provisional differs", Ref{TempID: "tmp-1"}, Ref{TempID: "tmp-2"}, false},
		{"number forms", Ref{ID: "3.0"}, Ref{MongoID: "3"}, true},
		{"padded string", Ref{ID: "0012"}, Ref{ID: "12"}, false},
		{"accepted handle", Ref{Accepted: "tmp-1"}, Ref{Accepted: "tmp-1"}, true},
		{"empty never matches", Ref{}, Ref{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Matches(tt.b))
			assert.Equal(t, tt.want, tt.b.Matches(tt.a))
		})
	}
}

func TestIdentityFromJSON(t *testing.T) {
	var c Customer
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"3","name":"Kojo"}`), &c))
	assert.True(t, c.Ref().Matches(Ref{ID: "3"}))
	assert.Equal(t, ID("3"), c.Ref().Key())
}

func TestAcceptKeepsLocalHandle(t *testing.T) {
	var c Customer
	c.Stamp("tmp-7")
	c.Accept()

	ref := c.Ref()
	assert.Empty(t, c.TempID)
	assert.False(t, ref.Provisional())
	assert.True(t, ref.Unconfirmed())
	assert.False(t, ref.IsZero())

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "tmp-7")

	c.Confirm()
	assert.True(t, c.Ref().IsZero())
}
