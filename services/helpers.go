package services

import (
	"errors"

	"github.com/campusarena/arena-system/repositories"
)

// mapRepoError переводит ошибки слоя репозиториев в ошибки сервисного слоя,
// чтобы хендлеры маппили единую таксономию.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrStakeNotFound):
		return ErrStakeNotFound
	case errors.Is(err, repositories.ErrInsufficientPoints):
		return ErrInsufficientPoints
	case repositories.IsSerializationFailure(err):
		return ErrStorageConflict
	default:
		return err
	}
}
