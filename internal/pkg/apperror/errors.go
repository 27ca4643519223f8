package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeInvariant означает нарушение денежного или статусного инварианта.
	// Такие ошибки не должны быть достижимы через публичные операции.
	ErrCodeInvariant ErrorCode = "INVARIANT_VIOLATION"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы sentinel-ошибки
// находились через errors.Is даже после Wrap.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Invariant создаёт ошибку нарушения инварианта.
func Invariant(format string, args ...any) *AppError {
	return New(ErrCodeInvariant, fmt.Sprintf(format, args...))
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

func IsInvariant(err error) bool {
	return hasCode(err, ErrCodeInvariant)
}

var (
	ErrUnauthorized = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden    = New(ErrCodeForbidden, "недостаточно прав")

	ErrAvailabilityNotFound  = New(ErrCodeNotFound, "слот доступности не найден")
	ErrBookingNotFound       = New(ErrCodeNotFound, "бронирование не найдено")
	ErrScheduleNotFound      = New(ErrCodeNotFound, "занятие не найдено")
	ErrConfirmationNotFound  = New(ErrCodeNotFound, "подтверждение занятия не найдено")
	ErrPayoutNotFound        = New(ErrCodeNotFound, "выплата не найдена")
	ErrWalletNotFound        = New(ErrCodeNotFound, "кошелёк не найден")
	ErrTransactionNotFound   = New(ErrCodeNotFound, "транзакция не найдена")
	ErrChangeRequestNotFound = New(ErrCodeNotFound, "запрос на перенос не найден")
	ErrClassRequestNotFound  = New(ErrCodeNotFound, "заявка на занятие не найдена")
	ErrRefundRequestNotFound = New(ErrCodeNotFound, "запрос на возврат не найден")
	ErrWithdrawalNotFound    = New(ErrCodeNotFound, "заявка на вывод не найдена")
	ErrReportNotFound        = New(ErrCodeNotFound, "жалоба не найдена")
	ErrTimeSlotNotFound      = New(ErrCodeNotFound, "временной слот не найден")
	ErrTutorSubjectNotFound  = New(ErrCodeNotFound, "предмет преподавателя не найден")

	ErrNoActiveFee           = New(ErrCodeValidation, "нет активной конфигурации комиссии")
	ErrNoRate                = New(ErrCodeValidation, "у предмета преподавателя не задана ставка")
	ErrInvalidSessions       = New(ErrCodeValidation, "количество занятий должно быть от 1 до 100")
	ErrInvalidAmount         = New(ErrCodeValidation, "сумма должна быть положительной")
	ErrDuplicateAvailability = New(ErrCodeValidation, "слот доступности на эту дату уже существует")
	ErrSlotInPast            = New(ErrCodeValidation, "нельзя создать слот в прошлом")
	ErrMinWithdrawalAmount   = New(ErrCodeValidation, "сумма вывода меньше минимальной")

	ErrTutorBusy                = New(ErrCodeConflict, "у преподавателя уже есть занятие в это время")
	ErrAvailabilityNotAvailable = New(ErrCodeConflict, "слот уже занят")
	ErrScheduleExists           = New(ErrCodeConflict, "занятие для этого слота уже существует")
	ErrSessionsExhausted        = New(ErrCodeConflict, "все занятия бронирования уже запланированы")
	ErrTutorMismatch            = New(ErrCodeConflict, "слот принадлежит другому преподавателю")
	ErrInvalidTransition        = New(ErrCodeConflict, "переход статуса недопустим")
	ErrTooEarly                 = New(ErrCodeConflict, "время перехода ещё не наступило")
	ErrTooLateToCancel          = New(ErrCodeConflict, "отмена недоступна так близко к началу занятия")
	ErrStaleWrite               = New(ErrCodeConflict, "запись была изменена параллельно, повторите запрос")
	ErrInsufficientFunds        = New(ErrCodeConflict, "недостаточно средств")
	ErrOnHold                   = New(ErrCodeConflict, "по занятию открыта жалоба")
	ErrAlreadyPaid              = New(ErrCodeConflict, "выплата уже проведена")
	ErrBookingNotPaid           = New(ErrCodeConflict, "бронирование не оплачено")
	ErrBookingAlreadyPaid       = New(ErrCodeConflict, "бронирование уже оплачено, используйте запрос на возврат")
	ErrRefundExceedsPaid        = New(ErrCodeConflict, "сумма возврата превышает доступную")
	ErrPendingRequestExists     = New(ErrCodeConflict, "уже есть необработанный запрос")
	ErrConfirmationExists       = New(ErrCodeConflict, "подтверждение по занятию уже создано")
	ErrPayoutExists             = New(ErrCodeConflict, "выплата по занятию уже создана")
	ErrWalletExists             = New(ErrCodeConflict, "кошелёк уже существует")
	ErrAvailabilityInUse        = New(ErrCodeConflict, "слот используется в занятиях")
)
