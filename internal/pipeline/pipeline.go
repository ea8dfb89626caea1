package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"bionlptag/internal/align"
	"bionlptag/internal/diag"
	"bionlptag/pkg/contract"
)

// - 单线程顺序处理：文档逐篇串行，组件均为同步实现。
// - 全有或全无：单篇文档先写入局部缓冲，完整成功后才并入总输出。
// - 失败策略：skip 记录后继续；abort 首错即停且不写任何输出。
// - 单次写出：全部文档处理完成后合并渲染，一次 Write。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Parser    contract.Parser
	Segmenter contract.Segmenter
	Renderer  contract.Renderer
	Writer    contract.Writer
}

// Policy 为单篇文档失败时的处理策略。
type Policy string

const (
	PolicySkip  Policy = "skip"
	PolicyAbort Policy = "abort"
)

// Settings 运行期配置（最小必要）。
type Settings struct {
	Inputs []string
	// Output 为总输出工件 ID，由 Writer 映射为落盘路径。
	Output  contract.ArtifactID
	OnError Policy
	// Report 为 true 时额外写出 <Output>.report.jsonl。
	Report bool
	// SegmenterName 仅用于终端展示。
	SegmenterName string
}

// 文档状态。
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// DocRecord 为报告中一篇文档的结果。
type DocRecord struct {
	Doc      string `json:"doc"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Lines    int    `json:"lines"`
	Words    int    `json:"words"`
	Entities int    `json:"entities"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report 汇总一次运行的结果。
type Report struct {
	Docs     []DocRecord
	Unusable []contract.FileID
	OK       int
	Failed   int
	// Lines 为写出的总行数（含空行）。
	Lines int
}

// ReportSuffix 为报告旁路文件后缀。
const ReportSuffix = ".report.jsonl"

// Run 执行完整流水线：Reader → Parser.Discover → (Parse → Segment → Align)* → Renderer → Writer。
// abort 策略下返回首个文档错误（包装文档 ID）；skip 策略下文档失败只体现在 Report 中。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Report, error) {
	var rep Report
	if err := sanity(comp, set); err != nil {
		return rep, fmt.Errorf("sanity: %w", err)
	}
	runStart := time.Now()
	rtimer := logger.Start("pipeline", "run")

	files, err := readAll(ctx, comp.Reader, set.Inputs, logger)
	if err != nil {
		finishRun(false, runStart)
		return rep, err
	}

	dtimer := logger.Start("parser", "discover")
	sources, unusable, err := comp.Parser.Discover(ctx, files)
	if err != nil {
		stageError(logger, "parser", "discover failed", err, dtimer.Since(), "")
		finishRun(false, runStart)
		return rep, fmt.Errorf("parser discover: %w", err)
	}
	dtimer.Finish("discover", int64(len(sources)))
	diag.IncOp("parser", "discover", "success")

	rep.Unusable = unusable
	for _, id := range unusable {
		logger.Warn("parser", string(diag.CodeMalformed), "unusable input", string(id))
		diag.IncOp("parser", "discover", "unusable")
		if t := diag.GetTerminal(); t != nil {
			t.Unusable(string(id))
		}
	}
	if t := diag.GetTerminal(); t != nil {
		t.RunStart(len(sources), set.SegmenterName)
	}

	var out []contract.TaggedLine
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			logger.Error("pipeline", string(diag.CodeCancel), "canceled", rtimer.Since())
			finishRun(false, runStart)
			return rep, err
		}
		lines, sum, derr := processDoc(ctx, comp, src, files, logger)
		rec := DocRecord{Doc: string(src.ID), Kind: string(src.Kind)}
		if derr != nil {
			code := diag.Classify(derr)
			rec.Status = StatusFailed
			rec.Code = string(code)
			rec.Error = derr.Error()
			rep.Docs = append(rep.Docs, rec)
			rep.Failed++
			if t := diag.GetTerminal(); t != nil {
				t.DocFail(string(src.ID), string(code), derr.Error())
				t.DocProgress(string(src.ID), false)
			}
			if errors.Is(derr, context.Canceled) || errors.Is(derr, context.DeadlineExceeded) || set.OnError == PolicyAbort {
				finishRun(false, runStart)
				return rep, fmt.Errorf("document %s: %w", src.ID, derr)
			}
			logger.Warn("pipeline", string(code), "document skipped: "+derr.Error(), string(src.ID))
			continue
		}
		rec.Status = StatusOK
		rec.Lines, rec.Words, rec.Entities = sum.Lines, sum.Words, sum.Entities
		rep.Docs = append(rep.Docs, rec)
		rep.OK++
		// 文档之间须以空行分隔
		if len(lines) > 0 && !lines[len(lines)-1].Blank {
			lines = append(lines, contract.BlankLine())
		}
		out = append(out, lines...)
		if t := diag.GetTerminal(); t != nil {
			t.DocProgress(string(src.ID), true)
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Error("pipeline", string(diag.CodeCancel), "canceled", rtimer.Since())
		finishRun(false, runStart)
		return rep, err
	}
	rep.Lines = len(out)
	if err := emit(ctx, comp, set.Output, out, logger); err != nil {
		finishRun(false, runStart)
		return rep, err
	}
	if set.Report {
		if err := writeReport(ctx, comp.Writer, set.Output+ReportSuffix, rep.Docs, logger); err != nil {
			finishRun(false, runStart)
			return rep, err
		}
	}
	rtimer.Finish("run", int64(rep.OK))
	diag.ObserveDuration("pipeline", "run", time.Since(runStart).Milliseconds())
	finishRun(rep.Failed == 0, runStart)
	return rep, nil
}

// readAll 将全部输入读入内存。任一文件读取失败即整体失败。
func readAll(ctx context.Context, r contract.Reader, inputs []string, logger *diag.Logger) (contract.Files, error) {
	timer := logger.Start("reader", "iterate")
	files := make(contract.Files)
	err := r.Iterate(ctx, inputs, func(id contract.FileID, rc io.ReadCloser) error {
		defer func() { _ = rc.Close() }()
		b, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("read %s: %w", id, err)
		}
		files[id] = b
		return nil
	})
	if err != nil {
		stageError(logger, "reader", "iterate failed", err, timer.Since(), "")
		return nil, fmt.Errorf("reader iterate: %w", err)
	}
	timer.Finish("iterate", int64(len(files)))
	diag.IncOp("reader", "iterate", "success")
	return files, nil
}

// processDoc 处理单篇文档，失败时不返回任何行。
func processDoc(ctx context.Context, comp Components, src contract.Source, files contract.Files, logger *diag.Logger) ([]contract.TaggedLine, align.Summary, error) {
	id := string(src.ID)
	ptimer := logger.StartWith("parser", "parse", id)
	doc, err := comp.Parser.Parse(ctx, src, files)
	if err != nil {
		stageError(logger, "parser", "parse failed", err, ptimer.Since(), id)
		return nil, align.Summary{}, err
	}
	ptimer.Finish("parse", int64(len(doc.Annotations)))
	diag.IncOp("parser", "parse", "success")

	atimer := logger.StartWith("aligner", "align", id)
	lines, err := align.Document(ctx, comp.Segmenter, doc)
	if err != nil {
		stageError(logger, "aligner", "align failed", err, atimer.Since(), id)
		return nil, align.Summary{}, err
	}
	sum := align.Summarize(lines)
	atimer.Finish("align", int64(sum.Words))
	diag.IncOp("aligner", "align", "success")
	return lines, sum, nil
}

// emit 渲染并写出总输出。
func emit(ctx context.Context, comp Components, id contract.ArtifactID, lines []contract.TaggedLine, logger *diag.Logger) error {
	rtimer := logger.Start("renderer", "render")
	r, err := comp.Renderer.Render(ctx, lines)
	if err != nil {
		stageError(logger, "renderer", "render failed", err, rtimer.Since(), "")
		return fmt.Errorf("renderer render: %w", err)
	}
	rtimer.Finish("render", int64(len(lines)))
	diag.IncOp("renderer", "render", "success")

	wtimer := logger.StartWith("writer", "write", string(id))
	if err := comp.Writer.Write(ctx, id, r); err != nil {
		stageError(logger, "writer", "write failed", err, wtimer.Since(), string(id))
		return fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("write", int64(len(lines)))
	diag.IncOp("writer", "write", "success")
	return nil
}

// writeReport 写出 JSON Lines 报告，每篇文档一行。
func writeReport(ctx context.Context, w contract.Writer, id contract.ArtifactID, docs []DocRecord, logger *diag.Logger) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	}
	timer := logger.StartWith("writer", "report", string(id))
	if err := w.Write(ctx, id, &buf); err != nil {
		stageError(logger, "writer", "report write failed", err, timer.Since(), string(id))
		return fmt.Errorf("writer report: %w", err)
	}
	timer.Finish("report", int64(len(docs)))
	diag.IncOp("writer", "report", "success")
	return nil
}

// stageError 记录阶段错误与计数。
func stageError(logger *diag.Logger, comp, msg string, err error, since *time.Time, fileID string) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg+": "+err.Error(), since, fileID)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func finishRun(ok bool, start time.Time) {
	if t := diag.GetTerminal(); t != nil {
		t.RunFinish(ok, time.Since(start))
	}
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Parser == nil || c.Segmenter == nil || c.Renderer == nil || c.Writer == nil {
		return errors.New("missing component")
	}
	if s.Output == "" {
		return errors.New("output is required")
	}
	switch s.OnError {
	case PolicySkip, PolicyAbort:
	default:
		return fmt.Errorf("invalid on_error %q", s.OnError)
	}
	return nil
}
