package game

import (
	"errors"
	"time"
)

// Family identifica uma família de jogo; cada família tem no máximo
// uma rodada não-encerrada por vez.
type Family string

const (
	FamilyWingo     Family = "wingo"      // número/cor, rodadas de 60s
	FamilyLuckyPair Family = "lucky_pair" // sorteio de par, rodadas de 1h
	FamilyCrash     Family = "crash"      // multiplicador contínuo
)

// Status de rodada (discretas: OPEN -> LOCKED -> SETTLING -> CLOSED;
// contínuas: WAITING -> RUNNING -> CRASHED -> CLOSED)
const (
	StatusOpen     = "OPEN"
	StatusLocked   = "LOCKED"
	StatusSettling = "SETTLING"
	StatusClosed   = "CLOSED"
	StatusWaiting  = "WAITING"
	StatusRunning  = "RUNNING"
	StatusCrashed  = "CRASHED"
)

// Status de aposta: transição única PENDING -> {WON, LOST, CASHED_OUT}
const (
	BetPending   = "PENDING"
	BetWon       = "WON"
	BetLost      = "LOST"
	BetCashedOut = "CASHED_OUT"
)

var (
	ErrWindowClosed      = errors.New("betting window closed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrInvalidStake      = errors.New("invalid stake")
	ErrRoundNotRunning   = errors.New("round not running")
	ErrNoPendingBet      = errors.New("no pending bet for round")
	ErrFamilyDisabled    = errors.New("game family disabled")
)

// DatePrefix retorna o prefixo YYYYMMDD do id de rodada
func DatePrefix(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

// NextPeriod aloca o próximo id de rodada: YYYYMMDD + sequência diária
// de 4 dígitos. Ids são crescentes e nunca reutilizados no mesmo dia;
// na virada de data a sequência recomeça em 0001.
func NextPeriod(now time.Time, last int64) int64 {
	prefix := DatePrefix(now)
	if last/10000 == prefix {
		return last + 1
	}
	return prefix*10000 + 1
}
