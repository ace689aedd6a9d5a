package domain

// UndoLog é uma pilha LIFO de ações sem limite de capacidade.
// Não é segura para uso concorrente; o TicketService a protege junto com o RecordStore.
type UndoLog struct {
	actions []Action
}

func NewUndoLog() *UndoLog {
	return &UndoLog{}
}

func (l *UndoLog) Push(action Action) {
	l.actions = append(l.actions, action)
}

// Pop remove e retorna a ação mais recente, ou false se a pilha estiver vazia.
func (l *UndoLog) Pop() (Action, bool) {
	if len(l.actions) == 0 {
		return nil, false
	}
	last := len(l.actions) - 1
	action := l.actions[last]
	l.actions[last] = nil
	l.actions = l.actions[:last]
	return action, true
}

func (l *UndoLog) Peek() (Action, bool) {
	if len(l.actions) == 0 {
		return nil, false
	}
	return l.actions[len(l.actions)-1], true
}

func (l *UndoLog) Len() int {
	return len(l.actions)
}

func (l *UndoLog) Reset() {
	clear(l.actions)
	l.actions = l.actions[:0]
}
