package view

import (
	"context"
	"errors"
	"strings"

	"securehealth-console/internal/domain"
	"securehealth-console/internal/guard"

	"go.uber.org/zap"
)

// PrivacyQueryAPI 隐私查询页所需接口
type PrivacyQueryAPI interface {
	Commands(ctx context.Context) ([]domain.AgentCommand, error)
	Ask(ctx context.Context, question string) (*domain.QueryAnswer, error)
}

// 对话角色
const (
	SpeakerUser  = "user"
	SpeakerAgent = "agent"
)

const (
	// historyCommands 挂载时回放的历史问答条数
	historyCommands = 6
	// AskFallback 提问失败时的回答
	AskFallback = "Unable to process — please try again."
	// pendingAnswer 历史记录里没有回答时的占位
	pendingAnswer = "…"
)

// ErrEmptyQuestion 问题为空
var ErrEmptyQuestion = errors.New("empty question")

// Message 一条对话
type Message struct {
	Speaker string
	Text    string
}

// PrivacyQueryState 隐私查询页渲染快照
type PrivacyQueryState struct {
	Messages []Message
	Pending  bool
}

// PrivacyQuery 与隐私查询代理的对话
type PrivacyQuery struct {
	base
	api PrivacyQueryAPI

	history  []Message
	messages []Message
	pending  int
}

func NewPrivacyQuery(c PrivacyQueryAPI, log *zap.Logger) *PrivacyQuery {
	return &PrivacyQuery{base: newBase(log, "privacy_query"), api: c}
}

func (v *PrivacyQuery) Route() string { return guard.PrivacyQueryRoute }

// Mount 回放最近的问答历史（按时间正序）
func (v *PrivacyQuery) Mount(ctx context.Context) {
	if !v.activate() {
		return
	}
	cmds := fetchOr(ctx, v.logger, "agent_commands", v.api.Commands)
	history := historyFrom(cmds)
	v.update(func() { v.history = history })
}

// historyFrom 命令列表最新在前；取最近几条隐私查询并转成正序的问答对
func historyFrom(cmds []domain.AgentCommand) []Message {
	var picked []domain.AgentCommand
	for _, c := range cmds {
		if c.Agent != domain.AgentPrivacyQuery {
			continue
		}
		picked = append(picked, c)
		if len(picked) == historyCommands {
			break
		}
	}
	out := make([]Message, 0, 2*len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		answer := picked[i].ResultSummary
		if answer == "" {
			answer = pendingAnswer
		}
		out = append(out,
			Message{Speaker: SpeakerUser, Text: picked[i].CommandText},
			Message{Speaker: SpeakerAgent, Text: answer},
		)
	}
	return out
}

// Ask 追加问题，再追加回答或失败提示
func (v *PrivacyQuery) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	v.update(func() {
		v.messages = append(v.messages, Message{Speaker: SpeakerUser, Text: question})
		v.pending++
	})

	res, err := v.api.Ask(ctx, question)
	answer := AskFallback
	if err == nil {
		answer = res.Answer
	} else {
		v.logger.Warn("Privacy query failed", zap.Error(err))
	}
	v.update(func() {
		v.messages = append(v.messages, Message{Speaker: SpeakerAgent, Text: answer})
		v.pending--
	})
	return answer, err
}

func (v *PrivacyQuery) State() PrivacyQueryState {
	v.mu.Lock()
	defer v.mu.Unlock()
	msgs := make([]Message, 0, len(v.history)+len(v.messages))
	msgs = append(msgs, v.history...)
	msgs = append(msgs, v.messages...)
	return PrivacyQueryState{Messages: msgs, Pending: v.pending > 0}
}
