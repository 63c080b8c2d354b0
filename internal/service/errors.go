package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/brokewise/internal/calculator"
	"github.com/mmynk/brokewise/internal/middleware"
	"github.com/mmynk/brokewise/internal/storage"
)

// connectError maps err to a connect error, with the error kind in the
// Brokewise-Error-Kind header when there is one.
func connectError(err error) *connect.Error {
	kind := calculator.KindOf(err)

	code := connect.CodeInternal
	switch kind {
	case calculator.KindInvalidDescription,
		calculator.KindInvalidAmount,
		calculator.KindUnbalancedExpense,
		calculator.KindUnknownCurrency,
		calculator.KindInvalidParticipant:
		code = connect.CodeInvalidArgument
	case calculator.KindDuplicateParticipant:
		code = connect.CodeAlreadyExists
	case calculator.KindUnknownParticipant, calculator.KindParticipantInUse:
		code = connect.CodeFailedPrecondition
	case calculator.KindExpenseNotFound:
		code = connect.CodeNotFound
	}
	if errors.Is(err, storage.ErrGroupNotFound) {
		code = connect.CodeNotFound
	}
	if errors.Is(err, calculator.ErrNoParticipants) {
		code = connect.CodeInvalidArgument
	}

	cerr := connect.NewError(code, err)
	if kind != "" {
		cerr.Meta().Set(middleware.ErrorKindHeader, string(kind))
	}
	return cerr
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// checkRequest runs the struct tags of a request message.
func (s *LedgerService) checkRequest(msg any) error {
	err := s.validate.Struct(msg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		details = append(details, fe.Field()+" "+validationMessage(fe))
	}
	return connect.NewError(connect.CodeInvalidArgument,
		fmt.Errorf("invalid request: %s", strings.Join(details, "; ")))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid":
		return "must be a valid group ID"
	}
	return "is invalid"
}
