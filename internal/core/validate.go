package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// decimal.Decimal is a struct; compare it as a number so gt/lt work.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		_, err := ParseMonth(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("accounttype", func(fl validator.FieldLevel) bool {
		_, err := ParseAccountType(fl.Field().String())
		return err == nil
	})
}

// fieldErrors maps a struct field to the sentinel reported for it.
var fieldErrors = map[string]error{
	"Date":            ErrInvalidDate,
	"Month":           ErrInvalidMonth,
	"Amount":          ErrInvalidAmount,
	"Balance":         ErrInvalidAmount,
	"Name":            ErrInvalidAccount,
	"FromAccount":     ErrInvalidAccount,
	"ToAccount":       ErrInvalidAccount,
	"Type":            ErrInvalidAccountType,
	"TransactionType": ErrInvalidType,
	"Action":          ErrInvalidAction,
}

// check runs struct validation and converts the first failure into the
// package sentinel for that field.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if fe.Tag() == "nefield" {
		return ErrSameAccount
	}
	if sentinel, ok := fieldErrors[fe.StructField()]; ok {
		return fmt.Errorf("%w: %s failed %s", sentinel, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("invalid %s: %s", fe.Field(), fe.Tag())
}

func (t Transaction) Validate() error {
	if err := check(t); err != nil {
		return err
	}
	switch t.Type() {
	case Expense, Income:
		return nil
	default:
		return ErrInvalidType
	}
}

func (r TransferRequest) Validate() error {
	return check(r)
}

func (r AdjustmentRequest) Validate() error {
	if err := check(r); err != nil {
		return err
	}
	// update_balance sets an absolute target; the others move a positive amount.
	if r.Action != ActionUpdateBalance && !r.Amount.IsPositive() {
		return fmt.Errorf("%w: %s needs a positive amount", ErrInvalidAmount, r.Action)
	}
	return nil
}

func (a NewAccount) Validate() error {
	return check(a)
}
