package pubsub

// Filter is a side-effect-free predicate over a message. Filters must not
// block: the bus evaluates them synchronously on the publisher's
// goroutine (after releasing its subscriber-index lock), so a slow or
// blocking filter would stall every publisher on its topic.
type Filter func(message any) bool

// And returns a filter accepting a message iff both f and other accept it.
func And(f, other Filter) Filter {
	return func(m any) bool {
		return f(m) && other(m)
	}
}

// Or returns a filter accepting a message iff either f or other accepts it.
func Or(f, other Filter) Filter {
	return func(m any) bool {
		return f(m) || other(m)
	}
}

// Not returns a filter accepting exactly the messages f rejects.
func Not(f Filter) Filter {
	return func(m any) bool {
		return !f(m)
	}
}

// FieldEquals returns a filter accepting a message m iff
// selector(m) == value. TValue must be comparable.
func FieldEquals[TMessage any, TValue comparable](selector func(TMessage) TValue, value TValue) Filter {
	return func(m any) bool {
		typed, ok := m.(TMessage)
		if !ok {
			return false
		}
		return selector(typed) == value
	}
}

// FieldContains returns a filter accepting a message m iff value is an
// element of selector(m).
func FieldContains[TMessage any, TValue comparable](selector func(TMessage) []TValue, value TValue) Filter {
	return func(m any) bool {
		typed, ok := m.(TMessage)
		if !ok {
			return false
		}
		for _, v := range selector(typed) {
			if v == value {
				return true
			}
		}
		return false
	}
}

// StringContains returns a filter accepting a message m iff value is a
// substring of selector(m).
func StringContains[TMessage any](selector func(TMessage) string, value string) Filter {
	return func(m any) bool {
		typed, ok := m.(TMessage)
		if !ok {
			return false
		}
		return stringContains(selector(typed), value)
	}
}

func stringContains(s, substr string) bool {
	return len(substr) == 0 || indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m > n {
		return -1
	}
	for i := 0; i <= n-m; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

// LengthMode selects the comparison FieldLength performs.
type LengthMode int

const (
	LengthEQ LengthMode = iota
	LengthMin
	LengthMax
)

// FieldLength returns a filter comparing len(selector(m)) against n
// according to mode.
func FieldLength[TMessage any](selector func(TMessage) string, n int, mode LengthMode) Filter {
	return func(m any) bool {
		typed, ok := m.(TMessage)
		if !ok {
			return false
		}
		length := len(selector(typed))
		switch mode {
		case LengthMin:
			return length >= n
		case LengthMax:
			return length <= n
		default:
			return length == n
		}
	}
}

// TypeIs returns a filter accepting a message m iff m's dynamic type is
// exactly TVariant.
func TypeIs[TVariant any]() Filter {
	return func(m any) bool {
		_, ok := m.(TVariant)
		return ok
	}
}
