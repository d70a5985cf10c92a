package vals

// Add adds two numbers. If either operand is a string, it concatenates the
// text forms instead. Other operands yield nil.
func Add(x, y any) any {
	_, xs := x.(string)
	_, ys := y.(string)
	if xs || ys {
		return ToText(x) + ToText(y)
	}
	if a, b, ok := ints(x, y); ok {
		return a + b
	}
	if a, b, ok := floats(x, y); ok {
		return a + b
	}
	return nil
}

// Sub subtracts two numbers, yielding nil for non-numbers.
func Sub(x, y any) any {
	if a, b, ok := ints(x, y); ok {
		return a - b
	}
	if a, b, ok := floats(x, y); ok {
		return a - b
	}
	return nil
}

// Mul multiplies two numbers, yielding nil for non-numbers.
func Mul(x, y any) any {
	if a, b, ok := ints(x, y); ok {
		return a * b
	}
	if a, b, ok := floats(x, y); ok {
		return a * b
	}
	return nil
}

// Div divides two numbers. Division by zero and non-numbers yield nil. The
// quotient of two ints is an int when exact.
func Div(x, y any) any {
	a, b, ok := floats(x, y)
	if !ok || b == 0 {
		return nil
	}
	if ia, ib, ok := ints(x, y); ok && ia%ib == 0 {
		return ia / ib
	}
	return a / b
}

func ints(x, y any) (int, int, bool) {
	a, ok1 := x.(int)
	b, ok2 := y.(int)
	return a, b, ok1 && ok2
}

func floats(x, y any) (float64, float64, bool) {
	a, ok1 := toFloat(x)
	b, ok2 := toFloat(y)
	return a, b, ok1 && ok2
}
