package services

import (
	"context"

	"github.com/campusarena/arena-system/models"
	"github.com/campusarena/arena-system/repositories"
)

// BracketService ведёт турнирное состояние команд: жизни, вылет, максимальную
// достигнутую стадию и ранг. Вызывается только изнутри транзакции расчёта.
type BracketService interface {
	RecordWin(ctx context.Context, exec repositories.SQLExecutor, teamID int, round models.Round) (*models.Team, error)
	RecordLoss(ctx context.Context, exec repositories.SQLExecutor, teamID int, round models.Round) (*models.Team, error)
}

type bracketService struct {
	teamRepo repositories.TeamRepository
}

func NewBracketService(teamRepo repositories.TeamRepository) BracketService {
	return &bracketService{teamRepo: teamRepo}
}

func (s *bracketService) RecordWin(ctx context.Context, exec repositories.SQLExecutor, teamID int, round models.Round) (*models.Team, error) {
	team, err := s.teamRepo.GetByIDForUpdate(ctx, exec, teamID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	team.HighestRound = models.MaxRound(team.HighestRound, round)
	if round == models.RoundFinal {
		// Победа в финале закрывает турнир для команды: чемпион, ранг 1.
		team.HighestRound = models.RoundChampion
		rank := 1
		team.Rank = &rank
	}

	if err := s.teamRepo.UpdateStanding(ctx, exec, team); err != nil {
		return nil, mapRepoError(err)
	}
	return team, nil
}

func (s *bracketService) RecordLoss(ctx context.Context, exec repositories.SQLExecutor, teamID int, round models.Round) (*models.Team, error) {
	team, err := s.teamRepo.GetByIDForUpdate(ctx, exec, teamID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	// Жизни только убывают, с полом в ноль; eliminated - производное от lives == 0.
	if team.Lives > 0 {
		team.Lives--
	}
	team.Eliminated = team.Lives == 0

	if round == models.RoundFinal {
		// Поражение в финале завершает участие независимо от оставшихся жизней.
		rank := 2
		team.Rank = &rank
	}

	if err := s.teamRepo.UpdateStanding(ctx, exec, team); err != nil {
		return nil, mapRepoError(err)
	}
	return team, nil
}
