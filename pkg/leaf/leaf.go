package leaf

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"github.com/Layr-Labs/whitelist-merkle-go/pkg/hasher"
)

// AddressLength is the canonical width of an account identifier in bytes.
const AddressLength = 32

var (
	// ErrInvalidAccountID is returned when the hex payload is odd-length or not hex.
	ErrInvalidAccountID = errors.New("invalid account identifier")

	// ErrAccountIDTooLong is returned when the payload decodes to more than AddressLength bytes.
	ErrAccountIDTooLong = errors.New("account identifier exceeds address length")
)

// EncodingError carries the identifier that failed to encode.
type EncodingError struct {
	AccountID string
	Err       error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode account %q: %v", e.AccountID, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// CanonicalBytes decodes an account identifier into its fixed-width form.
// The 0x prefix is optional. Decoded bytes occupy the start of the buffer and
// the remaining trailing bytes stay zero.
func CanonicalBytes(accountID string) ([AddressLength]byte, error) {
	var buf [AddressLength]byte

	if accountID == "" {
		return buf, &EncodingError{AccountID: accountID, Err: fmt.Errorf("%w: empty", ErrInvalidAccountID)}
	}

	payload := accountID
	if !strings.HasPrefix(payload, "0x") && !strings.HasPrefix(payload, "0X") {
		payload = "0x" + payload
	}

	decoded, err := hexutil.Decode(payload)
	if err != nil {
		return buf, &EncodingError{AccountID: accountID, Err: fmt.Errorf("%w: %v", ErrInvalidAccountID, err)}
	}
	if len(decoded) > AddressLength {
		return buf, &EncodingError{
			AccountID: accountID,
			Err:       fmt.Errorf("%w: decoded %d bytes, max %d", ErrAccountIDTooLong, len(decoded), AddressLength),
		}
	}

	copy(buf[:], decoded)
	return buf, nil
}

// EncodeLeaf hashes the canonical form of accountID into a merkle leaf.
func EncodeLeaf(h hasher.Hasher, accountID string) ([32]byte, error) {
	buf, err := CanonicalBytes(accountID)
	if err != nil {
		return [32]byte{}, err
	}
	return h.Hash(buf[:]), nil
}

// EncodeLeaves encodes every identifier, in parallel for larger inputs. The
// result preserves input order. When several identifiers are malformed the
// error for the lowest index is returned, so failures are reproducible.
func EncodeLeaves(ctx context.Context, h hasher.Hasher, accountIDs []string) ([][32]byte, error) {
	leaves := make([][32]byte, len(accountIDs))
	errs := make([]error, len(accountIDs))

	workers := runtime.GOMAXPROCS(0)
	chunk := (len(accountIDs) + workers - 1) / workers
	if chunk < minChunkSize {
		chunk = minChunkSize
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(accountIDs); start += chunk {
		end := min(start+chunk, len(accountIDs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				leaves[i], errs[i] = EncodeLeaf(h, accountIDs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return leaves, nil
}

const minChunkSize = 64
