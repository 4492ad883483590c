package posts

// Confirmations shown to the user after a successful change.
const (
	ToastAdded   = "Blog added successfully"
	ToastUpdated = "Blog updated successfully"
	ToastDeleted = "Blog Deleted Successfully"
)
