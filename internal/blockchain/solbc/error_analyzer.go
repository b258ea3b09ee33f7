package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// Коды ошибок программ pump.fun / PumpSwap
const (
	SlippageExceededCode    = "0x1774"
	SlippageExceededCodeInt = 6004
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Msg         string `json:"msg"`
	ProgramID   string `json:"programId,omitempty"`
	Instruction int    `json:"instruction,omitempty"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// IsSlippageExceededError определяет, является ли ошибка ошибкой превышения проскальзывания
func IsSlippageExceededError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "ExceededSlippage") ||
		strings.Contains(err.Error(), SlippageExceededCode) ||
		strings.Contains(err.Error(), strconv.Itoa(SlippageExceededCodeInt)))
}

// isSlippageLog ищет отказ по проскальзыванию в строке лога программы.
func isSlippageLog(l string) bool {
	return strings.Contains(l, "custom program error: "+SlippageExceededCode) ||
		strings.Contains(l, "ExceededSlippage") ||
		strings.Contains(l, "TooMuchSolRequired") ||
		strings.Contains(l, "TooLittleSolReceived")
}

// AnalyzeRPCError analyzes a jsonrpc.RPCError and extracts detailed information
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		result["simulation_failed"] = true

		if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
			if logs := toStrings(dataMap["logs"]); len(logs) > 0 {
				result["logs"] = logs
				if anchorErr, ok := ea.FindAnchorError(logs); ok {
					result["anchor_error"] = anchorErr
					ea.logger.Warn("Anchor error detected",
						zap.Int("code", anchorErr.Code),
						zap.String("name", anchorErr.Name),
						zap.String("message", anchorErr.Msg))
				}
			}
			if instrErr, ok := dataMap["err"]; ok && instrErr != nil {
				result["instruction_error"] = instrErr
			}
		}
	}

	return result
}

// PreflightFailure извлекает причину и логи из отказа preflight-симуляции при отправке.
// ok == false, если err не является отказом симуляции.
func (ea *ErrorAnalyzer) PreflightFailure(err error) (reason string, logs []string, ok bool) {
	analysis := ea.AnalyzeRPCError(err)
	if failed, _ := analysis["simulation_failed"].(bool); !failed {
		return "", nil, false
	}
	logs, _ = analysis["logs"].([]string)
	return ea.Reason(analysis["instruction_error"], logs), logs, true
}

// Reason формирует человекочитаемую причину отказа по ошибке исполнения и логам.
func (ea *ErrorAnalyzer) Reason(txErr interface{}, logs []string) string {
	if anchorErr, ok := ea.FindAnchorError(logs); ok {
		return fmt.Sprintf("%s (%d): %s", anchorErr.Name, anchorErr.Code, anchorErr.Msg)
	}

	for _, l := range logs {
		if isSlippageLog(l) {
			return fmt.Sprintf("slippage exceeded (%d)", SlippageExceededCodeInt)
		}
	}

	if txErr == nil {
		return "unknown error"
	}
	if b, err := json.Marshal(txErr); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", txErr)
}

// FindAnchorError возвращает первую ошибку Anchor из логов.
func (ea *ErrorAnalyzer) FindAnchorError(logs []string) (AnchorError, bool) {
	for _, l := range logs {
		if strings.Contains(l, "AnchorError") {
			return ea.parseAnchorErrorLog(l), true
		}
	}
	return AnchorError{}, false
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		if n, err := strconv.Atoi(strings.TrimSpace(numParts[0])); err == nil {
			result.Code = n
		}
	}

	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) > 1 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) > 1 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}

// FormatErrorAnalysis formats the error analysis for logging or display
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis map[string]interface{}) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}

func toStrings(v interface{}) []string {
	switch logs := v.(type) {
	case []string:
		return logs
	case []interface{}:
		out := make([]string, 0, len(logs))
		for _, l := range logs {
			if s, ok := l.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
