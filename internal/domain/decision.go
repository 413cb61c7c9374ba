package domain

// Decide - решение по заказу на основе результата проверки в каталоге.
// Чистая функция: без I/O и состояния.
func Decide(outcome Outcome, isbn string, quantity int) Order {
	if book, ok := outcome.Book(); ok {
		return AcceptedOrder(book, quantity)
	}
	return RejectedOrder(isbn, quantity)
}

// AcceptedOrder - принятый заказ: название "{title} - {author}" и цена из каталога.
func AcceptedOrder(book Book, quantity int) Order {
	name := book.Title + " - " + book.Author
	price := book.Price
	return Order{
		BookISBN:  book.ISBN,
		BookName:  &name,
		BookPrice: &price,
		Quantity:  quantity,
		Status:    OrderStatusAccepted,
	}
}

// RejectedOrder - отклонённый заказ без названия и цены.
func RejectedOrder(isbn string, quantity int) Order {
	return Order{
		BookISBN: isbn,
		Quantity: quantity,
		Status:   OrderStatusRejected,
	}
}
