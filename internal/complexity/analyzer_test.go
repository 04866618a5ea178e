//go:build cgo

package complexity

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

const goSource = `package main

func simple() {
	fmt.Println("hello")
}

func withIf(x int) {
	if x > 0 {
		fmt.Println("positive")
	}
}

func withLoop(items []int) {
	for _, item := range items {
		fmt.Println(item)
	}
}

func withAndOr(a, b bool) {
	if a && b {
		fmt.Println("both true")
	}
	if a || b {
		fmt.Println("one true")
	}
}

func (s *server) method() {}
`

func findFunction(functions []FunctionMetrics, name string) *FunctionMetrics {
	for i := range functions {
		if functions[i].Name == name {
			return &functions[i]
		}
	}
	return nil
}

func TestAnalyzeSource_Go(t *testing.T) {
	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), []byte(goSource), LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Language != LangGo {
		t.Errorf("Language = %s, want go", fm.Language)
	}
	if fm.FunctionCount != 5 {
		t.Errorf("FunctionCount = %d, want 5", fm.FunctionCount)
	}

	tests := []struct {
		name       string
		cyclomatic int
	}{
		{"simple", 1},
		{"withIf", 2},
		{"withLoop", 3}, // for + range clause
		{"withAndOr", 5},
		{"method", 1},
	}
	for _, tt := range tests {
		fn := findFunction(fm.Functions, tt.name)
		if fn == nil {
			t.Errorf("function %s not found", tt.name)
			continue
		}
		if fn.Cyclomatic != tt.cyclomatic {
			t.Errorf("%s: cyclomatic = %d, want %d", tt.name, fn.Cyclomatic, tt.cyclomatic)
		}
	}

	withIf := findFunction(fm.Functions, "withIf")
	if withIf != nil && (withIf.StartLine != 7 || withIf.Lines != 5) {
		t.Errorf("withIf position = line %d, %d lines", withIf.StartLine, withIf.Lines)
	}
}

func TestAnalyzeSource_Python(t *testing.T) {
	source := []byte(`
def simple():
    print("hello")

def with_loop(items):
    for item in items:
        print(item)

def with_and_or(a, b):
    if a and b:
        print("both")
    return a or b
`)

	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), source, LangPython)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn := findFunction(fm.Functions, "simple"); fn == nil || fn.Cyclomatic != 1 {
		t.Errorf("simple = %+v, want cyclomatic 1", fn)
	}
	if fn := findFunction(fm.Functions, "with_loop"); fn == nil || fn.Cyclomatic != 2 {
		t.Errorf("with_loop = %+v, want cyclomatic 2", fn)
	}
	if fn := findFunction(fm.Functions, "with_and_or"); fn == nil || fn.Cyclomatic != 4 {
		t.Errorf("with_and_or = %+v, want cyclomatic 4", fn)
	}
}

func TestCognitive_NestingPenalty(t *testing.T) {
	source := []byte(`package main

func flat(a, b, c bool) {
	if a {
		doA()
	}
	if b {
		doB()
	}
	if c {
		doC()
	}
}

func nested(a, b, c bool) {
	if a {
		if b {
			if c {
				doABC()
			}
		}
	}
}
`)

	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), source, LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flat := findFunction(fm.Functions, "flat")
	nested := findFunction(fm.Functions, "nested")
	if flat == nil || nested == nil {
		t.Fatal("functions not found")
	}
	if flat.Cyclomatic != nested.Cyclomatic {
		t.Errorf("cyclomatic should match: flat=%d nested=%d", flat.Cyclomatic, nested.Cyclomatic)
	}
	if flat.Cognitive != 3 {
		t.Errorf("flat cognitive = %d, want 3", flat.Cognitive)
	}
	if nested.Cognitive != 6 {
		t.Errorf("nested cognitive = %d, want 6 (1+2+3)", nested.Cognitive)
	}
}

func TestAnalyzeSource_UnsupportedLanguage(t *testing.T) {
	if _, err := NewAnalyzer().AnalyzeSource(context.Background(), []byte("x"), Language("cobol")); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestAnalyzeSource_Concurrent(t *testing.T) {
	analyzer := NewAnalyzer()
	want, err := analyzer.AnalyzeSource(context.Background(), []byte(goSource), LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := analyzer.AnalyzeSource(context.Background(), []byte(goSource), LangGo)
			if err != nil {
				errs <- err.Error()
				return
			}
			if !reflect.DeepEqual(got, want) {
				errs <- "concurrent result differs"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
