package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден
	ErrNotFound      = errors.New("requested resource not found")
	ErrMatchNotFound = errors.New("match not found")
	ErrTeamNotFound  = errors.New("team not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrStakeNotFound = errors.New("stake not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed  = errors.New("validation failed")
	ErrSameTeamTwice     = errors.New("match requires two distinct teams")
	ErrTeamsFromOtherEvent = errors.New("both teams must belong to the match event")
	ErrNonPositiveAmount = errors.New("stake amount must be positive")
	ErrTeamNotInMatch    = errors.New("team is not a side of this match")
	ErrWinnerNotInMatch  = errors.New("winner must be one of the match sides")
	ErrRoundInvalid      = errors.New("invalid round value")

	// Ошибки жизненного цикла матча
	ErrInvalidMatchTransition = errors.New("invalid match status transition")
	ErrMatchNotOpen           = errors.New("stake window is closed for this match")
	ErrMatchAlreadySettled    = errors.New("match has already been settled")

	// Ошибки баланса
	ErrInsufficientPoints = errors.New("insufficient points balance")

	// Конфликт записи в хранилище: единственная ошибка, которую вызывающий
	// может повторить автоматически, не меняя запрос.
	ErrStorageConflict = errors.New("transient storage conflict, retry the operation")
)
