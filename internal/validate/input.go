package validate

func emailRules(email string) []Rule {
	return []Rule{
		Required("email", email),
		MinLen("email", email, 5),
		MaxLen("email", email, 100),
		Email("email", email),
	}
}

func usernameRules(username string) []Rule {
	return []Rule{
		Required("username", username),
		MinLen("username", username, 2),
		MaxLen("username", username, 100),
	}
}

// Register validates a sign-up request.
func Register(username, email, password string) error {
	rules := usernameRules(username)
	rules = append(rules, emailRules(email)...)
	rules = append(rules, Password("password", password)...)
	return First(rules...)
}

// Login only checks shape; the complexity policy applies to new passwords.
func Login(email, password string) error {
	rules := emailRules(email)
	rules = append(rules,
		Required("password", password),
		MinLen("password", password, 8),
	)
	return First(rules...)
}

// ResetRequest validates the email of a password reset link request.
func ResetRequest(email string) error {
	return First(emailRules(email)...)
}

// NewPassword validates the password chosen on the reset page.
func NewPassword(password string) error {
	return First(Password("password", password)...)
}

// ProfileUpdate validates the fields present in a profile update. A nil
// field is left unchanged and not checked.
func ProfileUpdate(username, password, bio *string) error {
	var rules []Rule
	if username != nil {
		rules = append(rules, usernameRules(*username)...)
	}
	if password != nil {
		rules = append(rules, Password("password", *password)...)
	}
	if bio != nil {
		rules = append(rules, MaxLen("bio", *bio, 500))
	}
	return First(rules...)
}

func titleRules(title string) []Rule {
	return []Rule{
		Required("title", title),
		MinLen("title", title, 2),
		MaxLen("title", title, 100),
	}
}

func descriptionRules(description string) []Rule {
	return []Rule{
		Required("description", description),
		MinLen("description", description, 10),
	}
}

// NewPost validates a post creation request.
func NewPost(title, description, category string) error {
	rules := titleRules(title)
	rules = append(rules, descriptionRules(description)...)
	rules = append(rules, Required("category", category))
	return First(rules...)
}

// PostUpdate validates the fields present in a post update.
func PostUpdate(title, description, category *string) error {
	var rules []Rule
	if title != nil {
		rules = append(rules, titleRules(*title)...)
	}
	if description != nil {
		rules = append(rules, descriptionRules(*description)...)
	}
	if category != nil {
		rules = append(rules, Required("category", *category))
	}
	return First(rules...)
}

// NewComment validates a comment creation request.
func NewComment(postID, text string) error {
	return First(
		Required("postId", postID),
		Required("text", text),
	)
}

func CommentText(text string) error {
	return First(Required("text", text))
}

func CategoryTitle(title string) error {
	return First(Required("title", title))
}
