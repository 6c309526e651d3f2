package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipbot/internal/publish"
	kit "clipbot/internal/transport"
	logx "clipbot/pkg/logx"
)

func (r *Router) handleStart(ctx context.Context, req *Request) error {
	r.dialogs.clear(req.Chat.ChatID)
	_, err := req.Adapter.SendText(ctx, req.Chat, greetingText(r.svc.Resolver.Supported()), nil)
	return err
}

func (r *Router) handleStats(ctx context.Context, req *Request) error {
	st, err := r.svc.Queue.Stats(ctx)
	if err != nil {
		_, _ = req.Adapter.SendText(ctx, req.Chat, "❌ Не удалось получить статистику.", nil)
		return fmt.Errorf("queue stats: %w", err)
	}
	_, err = req.Adapter.SendText(ctx, req.Chat, statsText(st), &kit.SendOptions{ParseMode: "HTML"})
	return err
}

func (r *Router) handleCancel(ctx context.Context, req *Request) error {
	r.dialogs.clear(req.Chat.ChatID)
	_, err := req.Adapter.SendText(ctx, req.Chat, msgCancelled, nil)
	return err
}

// handleDialogText receives every non-command message. What it means depends
// on the chat's dialog state.
func (r *Router) handleDialogText(ctx context.Context, req *Request) error {
	dr := r.dialogs.get(req.Chat.ChatID)
	switch dr.State {
	case stateAwaitTitle:
		return r.handleCustomTitle(ctx, req, dr)
	case stateAwaitConfirm:
		// Buttons are on screen; free text is ignored until a choice is made.
		return nil
	default:
		return r.handleVideoURL(ctx, req)
	}
}

func (r *Router) handleVideoURL(ctx context.Context, req *Request) error {
	url := strings.TrimSpace(req.Update.Message.Text)

	if !strings.HasPrefix(url, "http") {
		_, err := req.Adapter.SendText(ctx, req.Chat, msgNotALink, nil)
		return err
	}
	if !r.svc.Resolver.IsValidURL(url) {
		_, err := req.Adapter.SendText(ctx, req.Chat, msgUnsupported, nil)
		return err
	}

	progress, err := req.Adapter.SendText(ctx, req.Chat, msgFetching, nil)
	if err != nil {
		return err
	}

	info, err := r.svc.Resolver.Resolve(ctx, url)
	if err != nil {
		req.Logger.Warn("video resolve failed", logx.String("url", url), logx.Err(err))
		return req.Adapter.EditText(ctx, progress, msgResolveFail, nil)
	}

	if err := req.Adapter.EditText(ctx, progress, translatingText(info.Title), nil); err != nil {
		return err
	}
	translated := r.svc.Translator.ToRussian(ctx, info.Title)

	r.dialogs.put(req.Chat.ChatID, &draft{
		State:         stateAwaitConfirm,
		Info:          info,
		OriginalTitle: info.Title,
		Title:         translated,
	})

	return req.Adapter.EditText(ctx, progress, confirmText(info, info.Title, translated), &kit.SendOptions{
		ParseMode:          "HTML",
		ReplyMarkupAdapter: confirmKeyboard(),
	})
}

func (r *Router) handleConfirm(ctx context.Context, req *Request) error {
	dr := r.dialogs.get(req.Chat.ChatID)
	if dr.State != stateAwaitConfirm || dr.Info == nil {
		return nil
	}
	ref := kit.MessageRef{ChatID: req.Chat.ChatID, MessageID: req.Update.Callback.MessageID}
	if err := req.Adapter.EditText(ctx, ref, msgScheduling, nil); err != nil {
		return err
	}
	return r.publishDraft(ctx, req, dr, ref)
}

func (r *Router) handleEdit(ctx context.Context, req *Request) error {
	dr := r.dialogs.get(req.Chat.ChatID)
	if dr.State != stateAwaitConfirm {
		return nil
	}
	dr.State = stateAwaitTitle
	r.dialogs.put(req.Chat.ChatID, dr)

	ref := kit.MessageRef{ChatID: req.Chat.ChatID, MessageID: req.Update.Callback.MessageID}
	return req.Adapter.EditText(ctx, ref, msgAskTitle, &kit.SendOptions{
		ReplyMarkupAdapter: cancelKeyboard(),
	})
}

func (r *Router) handleCancelButton(ctx context.Context, req *Request) error {
	r.dialogs.clear(req.Chat.ChatID)
	_ = req.Adapter.AnswerCallback(ctx, req.Update.Callback.ID, "Операция отменена")
	ref := kit.MessageRef{ChatID: req.Chat.ChatID, MessageID: req.Update.Callback.MessageID}
	return req.Adapter.EditText(ctx, ref, msgCancelled, nil)
}

func (r *Router) handleCustomTitle(ctx context.Context, req *Request, dr *draft) error {
	title := strings.TrimSpace(req.Update.Message.Text)
	if title == "" {
		_, err := req.Adapter.SendText(ctx, req.Chat, msgEmptyTitle, nil)
		return err
	}
	dr.Title = title

	progress, err := req.Adapter.SendText(ctx, req.Chat, msgScheduling, nil)
	if err != nil {
		return err
	}
	return r.publishDraft(ctx, req, dr, progress)
}

// publishDraft runs the publish loop and reports the outcome into ref.
// The dialog is cleared regardless of outcome, matching /cancel semantics.
func (r *Router) publishDraft(ctx context.Context, req *Request, dr *draft, ref kit.MessageRef) error {
	defer r.dialogs.clear(req.Chat.ChatID)

	receipt, err := r.svc.Publisher.Publish(ctx, dr.Info, dr.Title)
	if err != nil {
		if errors.Is(err, publish.ErrAttemptsExhausted) {
			req.Logger.Warn("publish attempts exhausted", logx.String("url", dr.Info.URL))
			return req.Adapter.EditText(ctx, ref, msgSlotsBusy, nil)
		}
		req.Logger.Error("publish failed", logx.String("url", dr.Info.URL), logx.Err(err))
		return req.Adapter.EditText(ctx, ref, msgPublishFail, nil)
	}

	st, err := r.svc.Queue.Stats(ctx)
	if err != nil {
		req.Logger.Warn("stats after publish failed", logx.Err(err))
		st = nil
	}
	at := time.Unix(receipt.ScheduledAt, 0).In(r.loc)

	text := successText(dr.Title, dr.Info.Platform, at, st)
	return req.Adapter.EditText(ctx, ref, text, &kit.SendOptions{ParseMode: "HTML"})
}
