package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/model"
	"github.com/spendlog/spendlog/internal/service"
)

func TestExpenseRequest_Fields(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantAmount string
		wantErr    string
	}{
		{name: "number", body: `{"amount":12.5}`, wantAmount: "12.5"},
		{name: "string", body: `{"amount":"12.50"}`, wantAmount: "12.5"},
		{name: "absent", body: `{"category":"Food"}`},
		{name: "null", body: `{"amount":null}`, wantErr: "amount: This field may not be null."},
		{name: "word", body: `{"amount":"twelve"}`, wantErr: "amount: A valid number is required."},
		{name: "bool", body: `{"amount":true}`, wantErr: "amount: A valid number is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ExpenseRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			fields, err := req.Fields()
			if tt.wantErr != "" {
				var ve *service.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantErr, ve.Error())
				return
			}
			require.NoError(t, err)
			if tt.wantAmount == "" {
				assert.Nil(t, fields.Amount)
				return
			}
			require.NotNil(t, fields.Amount)
			assert.True(t, fields.Amount.Equal(decimal.RequireFromString(tt.wantAmount)))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "300.00", Money(decimal.NewFromInt(300)))
	assert.Equal(t, "0.00", Money(decimal.Zero))
	assert.Equal(t, "12.50", Money(decimal.RequireFromString("12.5")))
}

func TestConversionsNeverNil(t *testing.T) {
	for name, v := range map[string]any{
		"expenses":   ToExpenseList(nil),
		"monthly":    ToMonthlyInsights(nil),
		"categories": ToCategoryInsights(nil),
	} {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(b), name)
	}

	b, err := json.Marshal(ToSummary(model.Summary{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_spent":"0.00","average_spent":"0.00","expense_count":0}`, string(b))
}
