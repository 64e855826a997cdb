package holiday

import (
	"fmt"
	"strings"
)

type Holiday int

const (
	Christmas Holiday = iota
	ValentinesDay
	Easter
	Halloween
	Birthday
	Other
)

const (
	christmasInstruction     = "Create a prompt for Dall-e that will generate a beautiful Christmas scene using the following text for inspiration:"
	valentinesDayInstruction = "Create a prompt for Dall-e that will generate a romantic Valentine's Day scene with hearts, flowers, and love themes using the following text for inspiration:"
	easterInstruction        = "Create a prompt for Dall-e that will generate a beautiful Easter scene with spring themes, Easter eggs, bunnies, and pastel colors using the following text for inspiration:"
	halloweenInstruction     = "Create a prompt for Dall-e that will generate a spooky Halloween scene with pumpkins, ghosts, witches, and autumn themes using the following text for inspiration:"
	birthdayInstruction      = "Create a prompt for Dall-e that will generate a festive birthday celebration scene with cakes, balloons, presents, and party themes using the following text for inspiration:"
	genericInstruction       = "Create a prompt for Dall-e that will generate a beautiful festive scene using the following text for inspiration:"
)

var labels = map[Holiday]string{
	Christmas:     "Christmas",
	ValentinesDay: "Valentine's Day",
	Easter:        "Easter",
	Halloween:     "Halloween",
	Birthday:      "Birthday",
	Other:         "Other",
}

// All returns every holiday in display order.
func All() []Holiday {
	return []Holiday{Christmas, ValentinesDay, Easter, Halloween, Birthday, Other}
}

// Labels returns the display labels of All, in the same order.
func Labels() []string {
	all := All()
	out := make([]string, 0, len(all))
	for _, h := range all {
		out = append(out, h.String())
	}
	return out
}

func (h Holiday) String() string {
	if label, ok := labels[h]; ok {
		return label
	}
	return labels[Other]
}

func (h Holiday) Valid() bool {
	_, ok := labels[h]
	return ok
}

// Instruction returns the system instruction used to expand a user prompt for
// this holiday. Anything that is not one of the five named holidays gets the
// generic festive instruction.
func (h Holiday) Instruction() string {
	switch h {
	case Christmas:
		return christmasInstruction
	case ValentinesDay:
		return valentinesDayInstruction
	case Easter:
		return easterInstruction
	case Halloween:
		return halloweenInstruction
	case Birthday:
		return birthdayInstruction
	default:
		return genericInstruction
	}
}

// Parse resolves a display label, case-insensitively.
func Parse(label string) (Holiday, error) {
	needle := strings.TrimSpace(label)
	for _, h := range All() {
		if strings.EqualFold(h.String(), needle) {
			return h, nil
		}
	}
	return Other, fmt.Errorf("unknown holiday %q", label)
}

// InstructionForLabel is Instruction for a free-form label; unrecognized
// labels fall back to the generic instruction.
func InstructionForLabel(label string) string {
	h, err := Parse(label)
	if err != nil {
		return genericInstruction
	}
	return h.Instruction()
}

func (h Holiday) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Holiday) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
