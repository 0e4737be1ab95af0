package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeekdaySetValueAndScan(t *testing.T) {
	set := WeekdaySet{"MON", "WED", "FRI"}

	value, err := set.Value()
	assert.NoError(t, err)
	assert.Equal(t, "MON,WED,FRI", value)

	var scanned WeekdaySet
	assert.NoError(t, scanned.Scan("MON,WED,FRI"))
	assert.Equal(t, set, scanned)

	var empty WeekdaySet
	assert.NoError(t, empty.Scan(""))
	assert.Nil(t, empty)

	assert.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}

func TestWeekdaySetValidate(t *testing.T) {
	assert.NoError(t, WeekdaySet{"MON", "SUN"}.Validate())
	assert.NoError(t, WeekdaySet(nil).Validate())
	assert.Error(t, WeekdaySet{"MONDAY"}.Validate())
	assert.Error(t, WeekdaySet{"MON", "MON"}.Validate())
}

func TestWeekdaySetDisplay(t *testing.T) {
	assert.Equal(t, "every day", WeekdaySet(nil).Display())
	assert.Equal(t, "SAT, SUN", WeekdaySet{"SAT", "SUN"}.Display())
}

func TestPaymentTransactionWorklistPredicate(t *testing.T) {
	tx := PaymentTransaction{
		PaymentMethod:         MethodQR,
		ProviderTransactionID: "momo-1",
		TransactionStatus:     TxPending,
	}
	assert.True(t, tx.NeedsStaffConfirmation())
	assert.False(t, tx.IsTerminal())

	tx.TransactionStatus = TxSuccess
	assert.False(t, tx.NeedsStaffConfirmation())
	assert.True(t, tx.IsTerminal())
}
