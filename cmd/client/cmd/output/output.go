// Package output форматирует вывод команд клиента
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

func Success(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func Warn(format string, args ...any) {
	warnColor.Printf("! "+format+"\n", args...)
}

func Error(format string, args ...any) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// Field строка "название: значение"
func Field(label string, value any) {
	fmt.Printf("%s %v\n", labelColor.Sprintf("%-24s", label+":"), value)
}

// JSON печатает значение с отступами
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка форматирования JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// Progress строка прогресса. В терминале перерисовывается на месте,
// иначе каждое обновление печатается с новой строки.
type Progress struct {
	out io.Writer
	tty bool
}

func NewProgress(f *os.File) *Progress {
	return &Progress{out: f, tty: term.IsTerminal(int(f.Fd()))}
}

func (p *Progress) Update(done, total int, label string) {
	percent := 100
	if total > 0 {
		percent = done * 100 / total
	}

	line := fmt.Sprintf("%s [%d/%d] %3d%%", label, done, total, percent)
	if p.tty {
		fmt.Fprintf(p.out, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(p.out, line)
}

// Done завершает перерисовываемую строку
func (p *Progress) Done() {
	if p.tty {
		fmt.Fprintln(p.out)
	}
}
