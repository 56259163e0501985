package entity

import "fmt"

// Kind тип синхронизируемой сущности. Значение совпадает с именем таблицы.
type Kind string

const (
	KindPlayer        Kind = "players"
	KindVenue         Kind = "venues"
	KindMatch         Kind = "matches"
	KindGame          Kind = "games"
	KindRallyAnalysis Kind = "rally_analyses"
)

// Kinds перечисляет сущности в порядке зависимостей: родители раньше детей.
var Kinds = []Kind{KindPlayer, KindVenue, KindMatch, KindGame, KindRallyAnalysis}

// Validate проверяет, что тип сущности известен.
func (k Kind) Validate() error {
	switch k {
	case KindPlayer, KindVenue, KindMatch, KindGame, KindRallyAnalysis:
		return nil
	}
	return fmt.Errorf("неизвестный тип сущности: %s", k)
}

// HasDependents сообщает, ссылаются ли на сущность другие сущности.
func (k Kind) HasDependents() bool {
	switch k {
	case KindPlayer, KindVenue, KindMatch:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// DisplayName возвращает человекочитаемое название этапа переноса.
func (k Kind) DisplayName() string {
	switch k {
	case KindPlayer:
		return "Перенос игроков"
	case KindVenue:
		return "Перенос площадок"
	case KindMatch:
		return "Перенос матчей"
	case KindGame:
		return "Перенос геймов"
	case KindRallyAnalysis:
		return "Перенос анализа розыгрышей"
	default:
		return "Перенос данных"
	}
}
