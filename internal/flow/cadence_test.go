package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `{
  "type": "Dictionary",
  "value": [
    {
      "key": {"type": "String", "value": "alpha"},
      "value": {
        "type": "Struct",
        "value": {
          "id": "A.577a3c409c5dcb5e.TrendingData",
          "fields": [
            {"name": "paymentCurrency", "value": {"type": "String", "value": "FLOW"}},
            {"name": "totalSupply", "value": {"type": "Optional", "value": {"type": "UFix64", "value": "1000.00000000"}}},
            {"name": "maxSupply", "value": {"type": "Optional", "value": null}},
            {"name": "holders", "value": {"type": "Array", "value": [
              {"type": "Address", "value": "0x01"},
              {"type": "Address", "value": "0x02"}
            ]}},
            {"name": "numProposals", "value": {"type": "Int", "value": "4"}},
            {"name": "treasuryBalances", "value": {"type": "Dictionary", "value": [
              {"key": {"type": "String", "value": "FLOW"}, "value": {"type": "UFix64", "value": "5.50000000"}}
            ]}}
          ]
        }
      }
    }
  ]
}`

func TestValueDecoding(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(sampleSnapshot), &v))

	entries, err := v.Dictionary()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	key, err := entries[0].Key.String()
	require.NoError(t, err)
	assert.Equal(t, "alpha", key)

	fields, err := entries[0].Value.Fields()
	require.NoError(t, err)

	currencyField := fields["paymentCurrency"]
	currency, err := currencyField.String()
	require.NoError(t, err)
	assert.Equal(t, "FLOW", currency)

	// Present optional
	supplyField := fields["totalSupply"]
	inner, err := supplyField.Optional()
	require.NoError(t, err)
	require.NotNil(t, inner)
	supply, err := inner.Float()
	require.NoError(t, err)
	assert.Equal(t, 1000.0, supply)

	// Empty optional
	maxField := fields["maxSupply"]
	inner, err = maxField.Optional()
	require.NoError(t, err)
	assert.Nil(t, inner)

	holdersField := fields["holders"]
	holders, err := holdersField.Array()
	require.NoError(t, err)
	require.Len(t, holders, 2)
	addr, err := holders[0].String()
	require.NoError(t, err)
	assert.Equal(t, "0x01", addr)

	proposalsField := fields["numProposals"]
	n, err := proposalsField.Int()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	balancesField := fields["treasuryBalances"]
	balances, err := balancesField.Dictionary()
	require.NoError(t, err)
	require.Len(t, balances, 1)
	amount, err := balances[0].Value.Float()
	require.NoError(t, err)
	assert.Equal(t, 5.5, amount)
}

func TestValueDecoding_TypeMismatches(t *testing.T) {
	v := Value{Type: "String", Value: json.RawMessage(`"hello"`)}

	_, err := v.Array()
	assert.Error(t, err)
	_, err = v.Dictionary()
	assert.Error(t, err)
	_, err = v.Optional()
	assert.Error(t, err)
	_, err = v.Fields()
	assert.Error(t, err)
}

func TestArgumentEncoding(t *testing.T) {
	var v Value

	require.NoError(t, json.Unmarshal(NewStringArray([]string{"a", "b"}), &v))
	items, err := v.Array()
	require.NoError(t, err)
	require.Len(t, items, 2)
	s, err := items[0].String()
	require.NoError(t, err)
	assert.Equal(t, "a", s)

	require.NoError(t, json.Unmarshal(NewAddressArray([]string{"0x01"}), &v))
	items, err = v.Array()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Address", items[0].Type)

	// Empty strings encode as nil optionals
	require.NoError(t, json.Unmarshal(NewOptionalAddressArray([]string{"0x01", ""}), &v))
	items, err = v.Array()
	require.NoError(t, err)
	require.Len(t, items, 2)

	inner, err := items[0].Optional()
	require.NoError(t, err)
	require.NotNil(t, inner)
	addr, err := inner.String()
	require.NoError(t, err)
	assert.Equal(t, "0x01", addr)

	inner, err = items[1].Optional()
	require.NoError(t, err)
	assert.Nil(t, inner)
}
