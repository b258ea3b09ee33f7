// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrNoRPCNodes возникает, когда клиенту не передан ни один узел
	ErrNoRPCNodes = errors.New("no RPC nodes configured")

	// ErrInvalidResponse возникает при получении некорректного ответа
	ErrInvalidResponse = errors.New("invalid RPC response")
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// isNodeFailure: ошибка транспорта, а не ответ узла. Только такие ошибки
// переключают клиента на следующий узел.
func isNodeFailure(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return !errors.As(err, &rpcErr)
}
