package app

import (
	"time"

	"quiz-attempt-service/internal/domain"
)

// State is the controller's position in the attempt lifecycle.
type State string

const (
	StateLoading      State = "loading"
	StateInLevel      State = "inLevel"
	StateLevelClosing State = "levelClosing"
	StateFinished     State = "finished"
	StateAborted      State = "aborted"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateAborted
}

// cursor is the whole mutable state of one attempt. reduce never mutates the
// cursor it is given; slices are extended copy-on-write.
type cursor struct {
	state State
	def   domain.QuizDefinition

	levelIdx    int
	questionIdx int

	startedAt         time.Time
	levelStartedAt    time.Time
	questionStartedAt time.Time
	endedAt           time.Time

	answers []domain.AnswerRecord
	closed  []domain.LevelAttempt

	// timerGen identifies the countdown of the level currently in play.
	timerGen uint64
	err      error
}

type event interface{ isEvent() }

type loadedEvent struct {
	def domain.QuizDefinition
	at  time.Time
}

type loadFailedEvent struct {
	err error
	at  time.Time
}

type answerEvent struct {
	option string
	at     time.Time
}

type expiredEvent struct {
	gen uint64
	at  time.Time
}

type forceCloseEvent struct {
	at time.Time
}

func (loadedEvent) isEvent()     {}
func (loadFailedEvent) isEvent() {}
func (answerEvent) isEvent()     {}
func (expiredEvent) isEvent()    {}
func (forceCloseEvent) isEvent() {}

type effect interface{ isEffect() }

type startTimerEffect struct {
	seconds int
	gen     uint64
}

type stopTimerEffect struct{}

type levelClosedEffect struct {
	level domain.LevelAttempt
}

type finishedEffect struct{}

func (startTimerEffect) isEffect()  {}
func (stopTimerEffect) isEffect()   {}
func (levelClosedEffect) isEffect() {}
func (finishedEffect) isEffect()    {}

// reduce applies one event. Events that are not valid in the current state are
// rejected with accepted=false and leave the cursor untouched.
func reduce(c cursor, ev event) (next cursor, effects []effect, accepted bool) {
	switch e := ev.(type) {
	case loadedEvent:
		if c.state != StateLoading {
			return c, nil, false
		}
		if err := e.def.Validate(); err != nil {
			c.state = StateAborted
			c.err = err
			c.endedAt = e.at
			return c, nil, true
		}
		c.def = e.def
		c.state = StateInLevel
		c.levelIdx, c.questionIdx = 0, 0
		c.startedAt, c.levelStartedAt, c.questionStartedAt = e.at, e.at, e.at
		c.timerGen++
		return c, []effect{startTimerEffect{seconds: c.def.Levels[0].TimeLimitSeconds, gen: c.timerGen}}, true

	case loadFailedEvent:
		if c.state.Terminal() {
			return c, nil, false
		}
		c.state = StateAborted
		c.err = e.err
		c.endedAt = e.at
		c.answers = nil
		return c, []effect{stopTimerEffect{}}, true

	case answerEvent:
		if c.state != StateInLevel {
			return c, nil, false
		}
		level := c.def.Levels[c.levelIdx]
		rec := RecordAnswer(level.Questions[c.questionIdx], e.option, e.at.Sub(c.questionStartedAt))
		c.answers = append(c.answers[:len(c.answers):len(c.answers)], rec)
		if c.questionIdx == len(level.Questions)-1 {
			c, effects = closeLevel(c, domain.CloseCompleted, e.at)
			return c, effects, true
		}
		c.questionIdx++
		c.questionStartedAt = e.at
		return c, nil, true

	case expiredEvent:
		if c.state != StateInLevel || e.gen != c.timerGen {
			return c, nil, false
		}
		c, effects = closeLevel(c, domain.CloseTimeout, e.at)
		return c, effects, true

	case forceCloseEvent:
		switch c.state {
		case StateLoading:
			c.state = StateAborted
			c.err = domain.ErrDefinitionLoad
			c.endedAt = e.at
			return c, nil, true
		case StateInLevel:
		default:
			return c, nil, false
		}
		// Every level from the current one on closes at the same instant; later
		// levels therefore carry a zero-duration forced timeout.
		for c.state == StateInLevel {
			var step []effect
			c, step = closeLevel(c, domain.CloseForced, e.at)
			for _, eff := range step {
				if _, restart := eff.(startTimerEffect); restart {
					continue
				}
				effects = append(effects, eff)
			}
		}
		return c, effects, true
	}
	return c, nil, false
}

// closeLevel runs the LevelClosing step and leaves the cursor either in the
// next level or Finished.
func closeLevel(c cursor, reason domain.CloseReason, at time.Time) (cursor, []effect) {
	c.state = StateLevelClosing
	la := CloseLevel(c.def.Levels[c.levelIdx], c.answers, c.levelStartedAt, at, reason)
	c.closed = append(c.closed[:len(c.closed):len(c.closed)], la)
	c.answers = nil

	effects := []effect{stopTimerEffect{}, levelClosedEffect{level: la}}
	if c.levelIdx+1 < len(c.def.Levels) {
		c.levelIdx++
		c.questionIdx = 0
		c.levelStartedAt, c.questionStartedAt = at, at
		c.timerGen++
		c.state = StateInLevel
		return c, append(effects, startTimerEffect{seconds: c.def.Levels[c.levelIdx].TimeLimitSeconds, gen: c.timerGen})
	}
	c.state = StateFinished
	c.endedAt = at
	return c, append(effects, finishedEffect{})
}
