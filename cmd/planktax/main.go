package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/planktax/internal/app/run"
	"github.com/John-Robertt/planktax/internal/config"
	"github.com/John-Robertt/planktax/internal/genus"
	"github.com/John-Robertt/planktax/internal/infra/fsx"
	"github.com/John-Robertt/planktax/internal/logging"
	"github.com/John-Robertt/planktax/internal/scan"
)

const (
	exitOK    = 0
	exitFail  = 1 // 批处理终止 / I/O 失败
	exitUsage = 2 // 参数或配置错误
)

// exitError 携带退出码；消息已由调用方写入日志。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, a ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, a...)}
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 自身的参数解析错误（未知 flag 等）。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return exitUsage
}

type resolveFlags struct {
	input      string
	inputDir   string
	configPath string
	format     string
	report     bool
	out        string
	fuzzy      bool
	marineOnly bool
	logLevel   string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "planktax",
		Short: "把属名映射到浮游植物粗分类群（Diatom/Dinoflagellate/Haptophyte/Other）",
		Long: `planktax 通过 WoRMS（World Register of Marine Species）查询属名，
并按门（phylum）把属归到 Diatom / Dinoflagellate / Haptophyte / Other。

结果是有序的单键映射列表，例如：
  [{"Thalassiosira":"Diatom"},{"Gymnodinium":"Dinoflagellate"}]`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newResolveCmd(stdin, stdout, stderr))
	return root
}

func newResolveCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve [genus...]",
		Short: "解析属名并输出类群映射",
		Example: `  planktax resolve Thalassiosira Gymnodinium
  planktax resolve --input labels.txt --format yaml
  planktax resolve --input - --report --out report.json < labels.csv
  planktax resolve --input-dir ./ifcb_training_set`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				ConfigPath:    f.configPath,
				Fuzzy:         f.fuzzy,
				FuzzySet:      cmd.Flags().Changed("fuzzy"),
				MarineOnly:    f.marineOnly,
				MarineOnlySet: cmd.Flags().Changed("marine-only"),
			}
			return runResolve(cmd.Context(), f, cli, args, stdin, stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "从文件读取标签（每行一个；- 表示 stdin）")
	fl.StringVar(&f.inputDir, "input-dir", "", "从按类别分目录的图像集读取标签（目录名即标签）")
	fl.StringVarP(&f.configPath, "config", "c", "", "配置文件路径（默认读取当前目录下的 "+config.FileName+"，可选）")
	fl.StringVarP(&f.format, "format", "f", "json", "输出格式：json|yaml")
	fl.BoolVar(&f.report, "report", false, "输出完整运行报告而不是仅映射列表")
	fl.StringVarP(&f.out, "out", "o", "", "把结果原子写入文件（不再写 stdout）")
	fl.BoolVar(&f.fuzzy, "fuzzy", true, "主查询无结果时使用模糊匹配兜底；--fuzzy=false 关闭")
	fl.BoolVar(&f.marineOnly, "marine-only", false, "只查询海洋类群")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error（默认读 "+logging.EnvLevel+"，再默认 info）")
	return cmd
}

func runResolve(ctx context.Context, f resolveFlags, cli config.CLIArgs, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger, err := logging.Init(f.logLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n", err)
		return &exitError{code: exitUsage, err: err}
	}

	format := strings.ToLower(strings.TrimSpace(f.format))
	if format != formatJSON && format != formatYAML {
		return logUsage(logger, usageErr("--format 只能是 json 或 yaml，实际是 %q", f.format))
	}

	cwd, err := os.Getwd()
	if err != nil {
		logger.Error().Err(err).Msg("读取当前目录失败")
		return &exitError{code: exitFail, err: err}
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		logger.Error().Str("error_code", config.Code(err)).Msg(err.Error())
		return &exitError{code: exitUsage, err: err}
	}
	logEffective(logger, eff)

	labels, err := collectLabels(args, f.input, f.inputDir, eff.ExcludeDirs, stdin)
	if err != nil {
		return logUsage(logger, err)
	}

	p, err := run.NewPipeline(eff)
	if err != nil {
		logger.Error().Str("error_code", config.ErrCodeInvalid).Msg(err.Error())
		return &exitError{code: exitUsage, err: err}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	entries := genus.Collect(labels)
	rr, err := run.ExecuteWithObserver(ctx, entries, p, newLogObserver(logger))
	if err != nil {
		logger.Error().Err(err).Msg("批处理终止：" + run.HumanizeError(err))
		return &exitError{code: exitFail, err: err}
	}

	var payload any = rr.Assignments
	if f.report {
		payload = rr
	}
	b, err := encodeOutput(format, payload)
	if err != nil {
		logger.Error().Err(err).Msg("编码输出失败")
		return &exitError{code: exitFail, err: err}
	}

	if strings.TrimSpace(f.out) != "" {
		if err := fsx.WriteFile(f.out, b); err != nil {
			logger.Error().Err(err).Str("path", f.out).Msg("写入输出文件失败")
			return &exitError{code: exitFail, err: err}
		}
		logger.Info().Str("path", f.out).Msg("结果已写入")
		return nil
	}
	if _, err := stdout.Write(b); err != nil {
		return &exitError{code: exitFail, err: err}
	}
	return nil
}

// collectLabels 合并位置参数、--input 文件与 --input-dir 目录中的标签（按此顺序）。
func collectLabels(args []string, input, inputDir string, excludeDirs []string, stdin io.Reader) ([]string, error) {
	labels := append([]string(nil), args...)

	if input = strings.TrimSpace(input); input != "" {
		var r io.Reader = stdin
		if input != "-" {
			fh, err := os.Open(input)
			if err != nil {
				return nil, usageErr("打开输入文件失败：%v", err)
			}
			defer fh.Close()
			r = fh
		}
		more, err := genus.ReadLabels(r)
		if err != nil {
			return nil, &exitError{code: exitFail, err: fmt.Errorf("读取输入失败：%w", err)}
		}
		labels = append(labels, more...)
	}

	if inputDir = strings.TrimSpace(inputDir); inputDir != "" {
		more, err := scan.ClassDirs(inputDir, excludeDirs)
		if err != nil {
			return nil, usageErr("扫描输入目录失败：%v", err)
		}
		labels = append(labels, more...)
	}

	if len(labels) == 0 {
		return nil, usageErr("没有输入：请提供属名参数、--input 文件或 --input-dir 目录")
	}
	return labels, nil
}

func logUsage(logger zerolog.Logger, err error) error {
	logger.Error().Msg("参数错误：" + err.Error())
	return err
}
