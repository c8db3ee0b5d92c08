package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"insureflow/models"
	"insureflow/services"
	"insureflow/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const flowOTPTTL = 5 * time.Minute

// FlowController drives client sessions through the application flow. Every
// handler loads the session, applies one machine operation under the
// session lock and stores the result, so a poller firing mid-interaction
// cannot corrupt state.
type FlowController struct {
	machine  *services.FlowMachine
	sessions services.SessionStore
	store    services.RecordStore
	pollers  *services.PollerRegistry
	rdb      *redis.Client
	devMode  bool

	locks sync.Map // session id -> *sync.Mutex
}

func NewFlowController(machine *services.FlowMachine, sessions services.SessionStore,
	store services.RecordStore, pollers *services.PollerRegistry, rdb *redis.Client, devMode bool) *FlowController {
	return &FlowController{
		machine:  machine,
		sessions: sessions,
		store:    store,
		pollers:  pollers,
		rdb:      rdb,
		devMode:  devMode,
	}
}

func (fc *FlowController) lock(id string) *sync.Mutex {
	mu, _ := fc.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (fc *FlowController) snapshot(s *models.FlowSession) gin.H {
	return gin.H{
		"id":               s.ID,
		"step":             s.Step,
		"variant":          fc.machine.Variant(),
		"docIndex":         s.DocIndex,
		"docsRead":         s.DocsRead,
		"verifyError":      s.VerifyError,
		"checkOtpVerified": s.CheckOTPVerified,
		"hasSignature":     s.HasSignature,
		"channel":          s.Channel,
		"record":           s.Record,
		"displayInsured":   s.Record.DisplayInsured(),
	}
}

// Start handles POST /api/flow/start with {token} or {id}. An inline token
// is tried first; otherwise the record is fetched from the store with the
// initial 10s deadline. The flow renders nothing until this resolves.
func (fc *FlowController) Start(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
		ID    string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var rec *models.InsuranceRecord
	switch {
	case req.Token != "":
		decoded, ok := utils.DecodeRecord(req.Token)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "the application link is invalid or corrupted, please request a new one",
			})
			return
		}
		rec = decoded
	case req.ID != "":
		ctx, cancel := context.WithTimeout(c.Request.Context(), services.InitialFetchTimeout)
		defer cancel()
		fetched, err := fc.store.FetchByID(ctx, req.ID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrRecordNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "application not found, the link may have expired"})
			case errors.Is(err, services.ErrStoreTimeout):
				c.JSON(http.StatusGatewayTimeout, gin.H{"error": "network timeout, please retry"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable, please retry"})
			}
			return
		}
		if !fetched.HasIdentity() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "the stored application is incomplete"})
			return
		}
		rec = fetched
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "token or id is required"})
		return
	}

	sess := fc.machine.NewSession(rec)
	if err := fc.sessions.Save(c.Request.Context(), sess); err != nil {
		utils.LogError(err, "flow start")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}
	c.JSON(http.StatusOK, fc.snapshot(sess))
}

// Get handles GET /api/flow/:sid — the current snapshot. Also the manual
// refresh recourse once the poller budget is spent.
func (fc *FlowController) Get(c *gin.Context) {
	sid := c.Param("sid")
	sess, err := fc.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		fc.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc.snapshot(sess))
}

// Teardown handles DELETE /api/flow/:sid — the navigation-away hook. The
// poller is stopped and the session removed.
func (fc *FlowController) Teardown(c *gin.Context) {
	sid := c.Param("sid")
	fc.pollers.StopFor(sid)
	if err := fc.sessions.Delete(c.Request.Context(), sid); err != nil {
		utils.LogError(err, "flow teardown")
	}
	fc.locks.Delete(sid)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (fc *FlowController) sessionError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found or expired, please reopen the link"})
		return
	}
	utils.LogError(err, "flow session load")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable, please retry"})
}

// mutate runs op on the locked session and persists the result. op returns
// (ok, optional inline error message shown next to the offending field).
func (fc *FlowController) mutate(c *gin.Context, op func(s *models.FlowSession) (bool, string)) {
	sid := c.Param("sid")
	mu := fc.lock(sid)
	mu.Lock()
	defer mu.Unlock()

	sess, err := fc.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		fc.sessionError(c, err)
		return
	}

	ok, msg := op(sess)
	if err := fc.sessions.Save(c.Request.Context(), sess); err != nil {
		utils.LogError(err, "flow session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable, please retry"})
		return
	}
	if !ok {
		if msg == "" {
			msg = "action not allowed on the current step"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "state": fc.snapshot(sess)})
		return
	}

	if sess.Step == models.StepPay {
		fc.startPoller(sess)
	}
	c.JSON(http.StatusOK, fc.snapshot(sess))
}

// ReadDoc handles POST /api/flow/:sid/read-doc with {index}.
func (fc *FlowController) ReadDoc(c *gin.Context) {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.MarkDocumentRead(s, req.Index), "document index out of range or wrong step"
	})
}

// Advance handles POST /api/flow/:sid/advance.
func (fc *FlowController) Advance(c *gin.Context) {
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.AdvanceDocument(s), "please read the current document first"
	})
}

// SkipToCheck handles POST /api/flow/:sid/skip-to-check.
func (fc *FlowController) SkipToCheck(c *gin.Context) {
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.SkipToCheck(s), "all documents must be read before skipping ahead"
	})
}

// VerifyPhone handles POST /api/flow/:sid/verify-phone with {phone}.
func (fc *FlowController) VerifyPhone(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.SubmitPhone(s, req.Phone), "the phone number does not match our records"
	})
}

// SendOTP handles POST /api/flow/:sid/send-otp for the confirmation-screen
// gate. Rate limited per session; in dev mode the code is returned instead
// of sent.
func (fc *FlowController) SendOTP(c *gin.Context) {
	sid := c.Param("sid")
	sess, err := fc.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		fc.sessionError(c, err)
		return
	}
	if sess.Step != models.StepCheck {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action not allowed on the current step"})
		return
	}

	ok, msg := utils.CanSendOTP(fc.rdb, sid)
	if !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msg})
		return
	}

	code := utils.GenerateOTP()
	key := fmt.Sprintf("flow_otp_%s", sid)
	if err := fc.rdb.Set(c.Request.Context(), key, code, flowOTPTTL).Err(); err != nil {
		utils.LogError(err, "otp store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send code, please retry"})
		return
	}
	utils.MarkOTPSent(fc.rdb, sid)

	resp := gin.H{"success": true}
	if fc.devMode {
		resp["otp"] = code
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmOTP handles POST /api/flow/:sid/confirm-otp with {code}.
func (fc *FlowController) ConfirmOTP(c *gin.Context) {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	sid := c.Param("sid")
	key := fmt.Sprintf("flow_otp_%s", sid)
	stored, err := fc.rdb.Get(c.Request.Context(), key).Result()
	if err != nil || req.Code == "" || stored != req.Code {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code"})
		return
	}
	fc.rdb.Del(c.Request.Context(), key)
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.PassCheckOTP(s), "action not allowed on the current step"
	})
}

// Proceed handles POST /api/flow/:sid/proceed.
func (fc *FlowController) Proceed(c *gin.Context) {
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.Proceed(s), "identity verification must complete first"
	})
}

// Signature handles POST /api/flow/:sid/signature with {action: set|clear|confirm}.
func (fc *FlowController) Signature(c *gin.Context) {
	var req struct {
		Action string `json:"action"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		switch req.Action {
		case "set":
			return fc.machine.SetSignature(s, true), ""
		case "clear":
			return fc.machine.ClearSignature(s), ""
		case "confirm":
			return fc.machine.ConfirmSignature(s), "a signature is required before confirming"
		default:
			return false, "action must be set, clear or confirm"
		}
	})
}

// Channel handles POST /api/flow/:sid/channel with {channel}.
func (fc *FlowController) Channel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fc.mutate(c, func(s *models.FlowSession) (bool, string) {
		return fc.machine.SelectChannel(s, req.Channel), "unknown payment channel"
	})
}

// AlipayURL handles GET /api/flow/:sid/alipay-url.
func (fc *FlowController) AlipayURL(c *gin.Context) {
	sid := c.Param("sid")
	sess, err := fc.sessions.Get(c.Request.Context(), sid)
	if err != nil {
		fc.sessionError(c, err)
		return
	}
	url, err := fc.machine.AlipayURL(sess)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// startPoller begins watching the order once the session reaches pay.
// Idempotent: the registry refuses a second poller for the same session.
// The OnPaid path reloads the session, forces completed and stores it; a
// concurrent user action merely loses the race to an idempotent write.
func (fc *FlowController) startPoller(sess *models.FlowSession) {
	orderID := sess.Record.OrderID
	if orderID == "" {
		return
	}
	sid := sess.ID
	p := services.NewStatusPoller(fc.store, orderID, func(rec *models.InsuranceRecord) {
		mu := fc.lock(sid)
		mu.Lock()
		defer mu.Unlock()

		ctx := context.Background()
		current, err := fc.sessions.Get(ctx, sid)
		if err != nil {
			utils.LogError(err, "poller session load")
			return
		}
		current.Record = *rec
		fc.machine.ForceCompleted(current)
		if err := fc.sessions.Save(ctx, current); err != nil {
			utils.LogError(err, "poller session save")
		}
		fc.pollers.Remove(sid)
	})
	p.OnExhausted = func() {
		fc.pollers.Remove(sid)
	}
	fc.pollers.StartFor(sid, p)
}
