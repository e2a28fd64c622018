package card

import (
	"fmt"
	"strconv"
	"strings"
)

// Card is the card data attached to a payment after the card-reading
// stage. The PAN never travels through the flow in the clear; participants
// see the masked form plus a token usable by the processing stage.
type Card struct {
	MaskedPAN  string `json:"masked_pan"`
	ExpiryYYMM string `json:"expiry_yymm"`
	Scheme     string `json:"scheme,omitempty"`
	Token      string `json:"token,omitempty"`
}

// New returns a Card with the PAN masked and the expiry validated.
func New(pan, expiryYYMM, scheme, token string) (*Card, error) {
	if err := ValidateYYMM(expiryYYMM); err != nil {
		return nil, fmt.Errorf("card expiry: %w", err)
	}
	return &Card{
		MaskedPAN:  MaskPAN(pan),
		ExpiryYYMM: expiryYYMM,
		Scheme:     scheme,
		Token:      token,
	}, nil
}

// MaskPAN keeps the first six and last four digits, replacing the rest
// with asterisks. Short inputs are masked entirely.
func MaskPAN(pan string) string {
	if len(pan) < 13 {
		return strings.Repeat("*", len(pan))
	}
	return pan[:6] + strings.Repeat("*", len(pan)-10) + pan[len(pan)-4:]
}

// ValidateYYMM checks that an expiry is four digits with a month in 01..12.
func ValidateYYMM(yymm string) error {
	if len(yymm) != 4 {
		return fmt.Errorf("expiry must be YYMM (4 digits)")
	}
	for i := 0; i < 4; i++ {
		if yymm[i] < '0' || yymm[i] > '9' {
			return fmt.Errorf("expiry must be digits: YYMM")
		}
	}
	mm := int(yymm[2]-'0')*10 + int(yymm[3]-'0')
	if mm < 1 || mm > 12 {
		return fmt.Errorf("expiry month must be 01..12")
	}
	return nil
}

// ParseCardFace accepts "MM/YY" or "MMYY" and returns YYMM.
func ParseCardFace(in string) (string, error) {
	s := strings.TrimSpace(in)
	s = strings.ReplaceAll(s, "/", "")
	if len(s) != 4 {
		return "", fmt.Errorf("card face must be MM/YY or MMYY")
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("card face must be digits")
		}
	}
	mm, _ := strconv.Atoi(s[:2])
	if mm < 1 || mm > 12 {
		return "", fmt.Errorf("month must be 01..12")
	}
	return s[2:] + fmt.Sprintf("%02d", mm), nil
}
