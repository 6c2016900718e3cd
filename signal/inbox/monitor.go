package inbox

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"tvbridge/config"
	"tvbridge/pkg/logger"
)

// Message 一封未读告警邮件
type Message struct {
	UID       uint32
	MessageID string
	From      string
	Subject   string
	// Content 正文中所有 text/plain 部分；正文为空时取标题
	Content string
}

// Handler 处理单封邮件，返回后该邮件会被标记为已读
type Handler func(ctx context.Context, msg *Message)

// DialFunc 建立 IMAP 连接
type DialFunc func(addr string) (*client.Client, error)

// Monitor IMAP 收件箱监听器
type Monitor struct {
	config *config.InboxConfig
	dial   DialFunc
	log    *zap.Logger
}

// MonitorOption 监听器可选配置
type MonitorOption func(*Monitor)

// WithDialer 替换默认的 TLS 连接方式
func WithDialer(dial DialFunc) MonitorOption {
	return func(m *Monitor) {
		m.dial = dial
	}
}

// NewMonitor 创建新的监听器，默认使用 IMAPS
func NewMonitor(cfg *config.InboxConfig, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		config: cfg,
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
		log: logger.NewModuleLogger("inbox"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Poll 连接IMAP，逐封处理未读邮件
// 每封邮件在 handle 返回后标记已读（无论结果如何）；连接类错误直接返回
func (m *Monitor) Poll(ctx context.Context, handle Handler) error {
	c, err := m.dial(m.config.Addr())
	if err != nil {
		return fmt.Errorf("连接IMAP失败: %w", err)
	}
	defer c.Logout()

	if err := c.Login(m.config.User, m.config.Password); err != nil {
		return fmt.Errorf("登录失败: %w", err)
	}

	if _, err := c.Select(m.config.Mailbox, false); err != nil {
		return fmt.Errorf("选择收件箱失败: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}

	msgs, err := m.fetch(c, uids)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			// 剩余邮件保持未读，下次轮询处理
			return ctx.Err()
		}
		m.dispatch(ctx, c, msg, handle)
	}
	return nil
}

// fetch 先把邮件全部读入内存，再逐封处理（同一连接上不能边 FETCH 边 STORE）
func (m *Monitor) fetch(c *client.Client, uids []uint32) ([]*Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// PEEK 不会自动设置 \Seen
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var out []*Message
	for msg := range messages {
		out = append(out, m.toMessage(msg, section))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (m *Monitor) toMessage(msg *imap.Message, section *imap.BodySectionName) *Message {
	out := &Message{UID: msg.Uid}
	if env := msg.Envelope; env != nil {
		out.MessageID = env.MessageId
		out.Subject = env.Subject
		if len(env.From) > 0 {
			out.From = formatAddress(env.From[0])
		}
	}

	if r := msg.GetBody(section); r != nil {
		parsed, err := ExtractContent(r)
		if err != nil {
			m.log.Warn("解析邮件结构失败", zap.Uint32("uid", msg.Uid), zap.Error(err))
		}
		if parsed != nil {
			if parsed.MessageID != "" {
				out.MessageID = parsed.MessageID
			}
			if parsed.From != "" {
				out.From = parsed.From
			}
			if parsed.Subject != "" {
				out.Subject = parsed.Subject
			}
			out.Content = parsed.Content
		}
	}

	if strings.TrimSpace(out.Content) == "" {
		out.Content = normalizeKeys(out.Subject)
	}
	return out
}

func (m *Monitor) dispatch(ctx context.Context, c *client.Client, msg *Message, handle Handler) {
	defer m.markSeen(c, msg.UID)

	if !SenderAllowed(msg.From, m.config.AllowedFrom) {
		m.log.Info("📭 发件人不在白名单，跳过", zap.Uint32("uid", msg.UID), zap.String("from", msg.From))
		return
	}
	handle(ctx, msg)
}

func (m *Monitor) markSeen(c *client.Client, uid uint32) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := c.UidStore(seqset, item, flags, nil); err != nil {
		m.log.Error("标记已读失败", zap.Uint32("uid", uid), zap.Error(err))
	}
}

// SenderAllowed 发件人白名单（不区分大小写的子串匹配），未配置时全部放行
func SenderAllowed(from, allowed string) bool {
	if allowed == "" {
		return true
	}
	return strings.Contains(strings.ToLower(from), strings.ToLower(allowed))
}

// ExtractContent 解析 RFC822 邮件，拼接所有 text/plain 正文
// 正文为空时以标题代替；只归一化每行的键和分隔符，取值原样保留
func ExtractContent(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件读取器失败: %w", err)
	}
	defer mr.Close()

	out := &Message{}
	out.Subject, _ = mr.Header.Subject()
	out.MessageID, _ = mr.Header.MessageID()
	if from, err := mr.Header.Text("From"); err == nil {
		out.From = from
	} else {
		out.From = mr.Header.Get("From")
	}

	var body strings.Builder
	var partErr error
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			partErr = fmt.Errorf("读取邮件部分失败: %w", err)
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, _ := h.ContentType()
		if mediaType != "" && !strings.EqualFold(mediaType, "text/plain") {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			partErr = fmt.Errorf("读取正文失败: %w", err)
			break
		}
		body.Write(b)
		body.WriteString("\n")
	}

	out.Content = body.String()
	if strings.TrimSpace(out.Content) == "" {
		out.Content = out.Subject
	}
	out.Content = normalizeKeys(out.Content)
	return out, partErr
}

// normalizeKeys 对每行第一个等号之前的键做 NFKC，全角 '＝' 等统一为 '='
// 等号之后的值（包括 SECRET）不做任何改动
func normalizeKeys(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		for j, r := range line {
			if r != '=' && norm.NFKC.String(string(r)) != "=" {
				continue
			}
			lines[i] = norm.NFKC.String(line[:j]) + "=" + line[j+utf8.RuneLen(r):]
			break
		}
	}
	return strings.Join(lines, "\n")
}

func formatAddress(a *imap.Address) string {
	if a == nil {
		return ""
	}
	if a.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", a.PersonalName, a.Address())
	}
	return a.Address()
}
