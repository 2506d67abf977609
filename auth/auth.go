package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"quillmark/models"
	"quillmark/validation"
)

// ErrInvalidCredentials is the single user-facing auth failure. Unknown
// email and wrong password both map here so accounts cannot be enumerated.
var ErrInvalidCredentials = errors.New("email or password is incorrect")

const bcryptCost = 12

// Strategy authenticates a credential pair against some backing store.
type Strategy interface {
	Authenticate(email, password string) (*models.User, error)
}

// CredentialsStrategy checks an email/password pair against the users table.
type CredentialsStrategy struct {
	db *gorm.DB
}

func NewCredentialsStrategy(db *gorm.DB) *CredentialsStrategy {
	return &CredentialsStrategy{db: db}
}

func (s *CredentialsStrategy) Authenticate(email, password string) (*models.User, error) {
	// constraint check before any lookup
	if errs := validation.Struct(validation.LoginInput{Email: email, Password: password}); len(errs) > 0 {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

type AuthModule struct {
	db       *gorm.DB
	strategy Strategy
}

func NewAuthModule(db *gorm.DB, strategy Strategy) *AuthModule {
	return &AuthModule{db: db, strategy: strategy}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/login", a.loginPage)
	router.POST("/login", a.loginPost)
	router.GET("/register", a.registerPage)
	router.POST("/register", a.registerPost)
	router.GET("/logout", a.logout)
}

// RequireAuth redirects anonymous requests to the login page and exposes the
// session's user id to downstream handlers.
func RequireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get("user_id")

	if userID == nil {
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
		return
	}

	c.Set("user_id", userID)
	c.Next()
}

func (a *AuthModule) loginPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/manage")
		return
	}

	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (a *AuthModule) loginPost(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := a.strategy.Authenticate(email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{
				"error": ErrInvalidCredentials.Error(),
				"email": email,
			})
			return
		}
		// unexpected storage fault, surface it instead of masking as bad credentials
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	a.establishSession(c, user)
	c.Redirect(http.StatusFound, "/manage")
}

func (a *AuthModule) registerPage(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get("user_id") != nil {
		c.Redirect(http.StatusFound, "/manage")
		return
	}

	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (a *AuthModule) registerPost(c *gin.Context) {
	input := validation.RegisterInput{
		Name:            c.PostForm("name"),
		Email:           c.PostForm("email"),
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirmPassword"),
	}

	user, errs := a.RegisterUser(input)
	if len(errs) > 0 {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{
			"errors": errs,
			"name":   input.Name,
			"email":  input.Email,
		})
		return
	}

	a.establishSession(c, user)
	c.Redirect(http.StatusFound, "/manage")
}

// RegisterUser validates the registration form, rejects duplicate emails and
// persists the new user with a hashed password. Nothing is written when the
// returned error map is non-empty.
func (a *AuthModule) RegisterUser(input validation.RegisterInput) (*models.User, validation.Errors) {
	errs := validation.Struct(input)
	if len(errs) > 0 {
		return nil, errs
	}

	var existing models.User
	err := a.db.Where("email = ?", input.Email).First(&existing).Error
	if err == nil {
		return nil, validation.Errors{"email": {"this email address is already registered"}}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// a failed lookup is a storage fault, not a free email
		return nil, validation.Errors{"db": {"could not create the account"}}
	}

	passwordHash, hashErr := HashPassword(input.Password)
	if hashErr != nil {
		return nil, validation.Errors{"password": {"could not process the password"}}
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
	}

	if err := a.db.Create(&user).Error; err != nil {
		return nil, validation.Errors{"db": {"could not create the account"}}
	}

	return &user, nil
}

func (a *AuthModule) establishSession(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()
}

func (a *AuthModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.Redirect(http.StatusFound, "/login")
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
