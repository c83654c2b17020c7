package app

import (
	"math"
	"sort"
	"time"

	"quizhost/internal/domain"
)

// scoreQuestion grades every submission for the question at the given
// position, fills in the derived Submission fields and returns the aggregate
// result. Players are expected in join order so the ranking tie-break is
// stable.
//
// Scoring policy: a submission is correct iff its answer set equals the
// question's full correct-answer set; every correct player receives the
// question's full point value, everyone else zero.
func scoreQuestion(question domain.Question, position int, players []*domain.Player, openedAt time.Time) domain.QuestionResult {
	result := domain.QuestionResult{QuestionID: question.ID}
	if len(players) == 0 {
		return result
	}

	correctSet := question.CorrectAnswerIDs()

	type graded struct {
		name        string
		submittedAt time.Time
	}
	var correct []graded
	var answerTimes []float64

	for _, player := range players {
		sub, ok := player.Submissions[position]
		if !ok {
			continue
		}
		sub.TimeSpentSec = sub.SubmittedAt.Sub(openedAt).Seconds()
		answerTimes = append(answerTimes, sub.TimeSpentSec)

		sub.Correct = matchesCorrectSet(sub.AnswerIDs, correctSet)
		if sub.Correct {
			sub.Points = question.Points
			correct = append(correct, graded{name: player.Name, submittedAt: sub.SubmittedAt})
		} else {
			sub.Points = 0
		}
	}

	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].submittedAt.Before(correct[j].submittedAt)
	})
	for _, g := range correct {
		result.PlayersCorrect = append(result.PlayersCorrect, g.name)
	}

	result.PercentCorrect = int(math.Round(float64(len(correct)) / float64(len(players)) * 100))

	if len(answerTimes) > 0 {
		var total float64
		for _, t := range answerTimes {
			total += t
		}
		result.AverageAnswerTimeSec = total / float64(len(answerTimes))
	}
	return result
}

func matchesCorrectSet(answerIDs []string, correctSet map[string]struct{}) bool {
	if len(answerIDs) != len(correctSet) {
		return false
	}
	for _, id := range answerIDs {
		if _, ok := correctSet[id]; !ok {
			return false
		}
	}
	return true
}

// finalRanking sums each player's points across all questions and orders the
// scoreboard by total descending. Ties keep join order (stable sort).
func finalRanking(players []*domain.Player) domain.FinalResult {
	entries := make([]domain.RankEntry, 0, len(players))
	for _, player := range players {
		total := 0
		for _, sub := range player.Submissions {
			total += sub.Points
		}
		entries = append(entries, domain.RankEntry{Name: player.Name, Score: total})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return domain.FinalResult{Ranking: entries}
}
