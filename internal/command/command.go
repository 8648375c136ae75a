package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type Kind int

const (
	KindInt Kind = iota
	KindMember
	KindRole
	KindChannel
	KindDuration
	KindString
	// KindRest consumes every remaining token as one free-text value.
	KindRest
)

type Param struct {
	Name     string
	Kind     Kind
	Required bool
	Default  string
}

type Handler func(s *discordgo.Session, m *discordgo.MessageCreate, args Args) error

// Spec declares one command: its registry identity, the capability the
// invoker must hold, and the ordered parameter list the parser consumes.
type Spec struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string
	Capability  int64
	Params      []Param
	Run         Handler
}

// Resolver turns a raw token into a platform entity within the guild the
// command was invoked from.
type Resolver interface {
	Member(ref string) (*discordgo.Member, error)
	Role(ref string) (*discordgo.Role, error)
	Channel(ref string) (*discordgo.Channel, error)
}

type Args struct {
	members   map[string]*discordgo.Member
	roles     map[string]*discordgo.Role
	channels  map[string]*discordgo.Channel
	ints      map[string]int
	durations map[string]time.Duration
	strings   map[string]string
	present   map[string]bool
}

func newArgs() Args {
	return Args{
		members:   make(map[string]*discordgo.Member),
		roles:     make(map[string]*discordgo.Role),
		channels:  make(map[string]*discordgo.Channel),
		ints:      make(map[string]int),
		durations: make(map[string]time.Duration),
		strings:   make(map[string]string),
		present:   make(map[string]bool),
	}
}

func (a Args) Has(name string) bool                  { return a.present[name] }
func (a Args) Member(name string) *discordgo.Member  { return a.members[name] }
func (a Args) Role(name string) *discordgo.Role      { return a.roles[name] }
func (a Args) Channel(name string) *discordgo.Channel { return a.channels[name] }
func (a Args) Int(name string) int                   { return a.ints[name] }
func (a Args) Duration(name string) time.Duration    { return a.durations[name] }
func (a Args) String(name string) string             { return a.strings[name] }

type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing required argument %q", e.Param)
}

type BadArgumentError struct {
	Param string
	Value string
}

func (e *BadArgumentError) Error() string {
	return fmt.Sprintf("could not resolve %q for argument %q", e.Value, e.Param)
}

type UnknownCommandError struct {
	Name       string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q, did you mean %q", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Split strips the prefix and breaks the message into verb and argument
// tokens. ok is false when the message does not start with the prefix.
func Split(content, prefix string) (string, []string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Parse walks the spec's parameter list over the token stream. Optional
// parameters fall back to their declared default, or are left absent.
func Parse(spec *Spec, tokens []string, r Resolver) (Args, error) {
	args := newArgs()
	pos := 0

	for _, param := range spec.Params {
		var token string
		have := pos < len(tokens)

		if param.Kind == KindRest {
			if have {
				token = strings.Join(tokens[pos:], " ")
				pos = len(tokens)
			}
		} else if have {
			token = tokens[pos]
			pos++
		}

		if token == "" {
			if param.Default != "" {
				token = param.Default
			} else if param.Required {
				return Args{}, &MissingArgumentError{Param: param.Name}
			} else {
				continue
			}
		}

		switch param.Kind {
		case KindInt:
			n, err := strconv.Atoi(token)
			if err != nil {
				return Args{}, &BadArgumentError{Param: param.Name, Value: token}
			}
			args.ints[param.Name] = n
		case KindMember:
			member, err := r.Member(token)
			if err != nil || member == nil {
				return Args{}, &BadArgumentError{Param: param.Name, Value: token}
			}
			args.members[param.Name] = member
		case KindRole:
			role, err := r.Role(token)
			if err != nil || role == nil {
				return Args{}, &BadArgumentError{Param: param.Name, Value: token}
			}
			args.roles[param.Name] = role
		case KindChannel:
			channel, err := r.Channel(token)
			if err != nil || channel == nil {
				return Args{}, &BadArgumentError{Param: param.Name, Value: token}
			}
			args.channels[param.Name] = channel
		case KindDuration:
			d, err := utils.ParseDuration(token)
			if err != nil {
				return Args{}, &BadArgumentError{Param: param.Name, Value: token}
			}
			args.durations[param.Name] = d
		case KindString, KindRest:
			args.strings[param.Name] = token
		}
		args.present[param.Name] = true
	}

	return args, nil
}
