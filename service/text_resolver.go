package service

// DefaultTextResolver is the built-in message table. Russian is the only
// shipped locale; unknown keys resolve to the key itself so a missing entry
// is visible instead of silent.
type DefaultTextResolver struct {
	tables map[string]map[string]string
}

func NewDefaultTextResolver() *DefaultTextResolver {
	return &DefaultTextResolver{
		tables: map[string]map[string]string{
			"ru": ruTexts,
		},
	}
}

func (r *DefaultTextResolver) Resolve(key string, locale string) string {
	table, ok := r.tables[locale]
	if !ok {
		table = r.tables["ru"]
	}
	if text, ok := table[key]; ok {
		return text
	}
	return key
}

var ruTexts = map[string]string{
	"resume_choice_prompt":  "У вас есть сохранённая корзина. Продолжить с ней или начать заново?",
	"resume_option":         "Продолжить с корзиной",
	"restart_option":        "Начать заново",
	"cart_restored":         "Корзина восстановлена. Выберите упаковку или измените заказ.",
	"cart_cleared":          "Корзина очищена. Начните новый заказ, когда будете готовы!",
	"item_menu_prompt":      "Выберите самсу:",
	"item_edit_prompt":      "Укажите количество:",
	"cart_empty_guard":      "Корзина пуста! Добавьте хотя бы одну самсу для оформления заказа.",
	"packaging_prompt":      "Выберите упаковку:",
	"enter_name":            "Введите ваше имя:",
	"enter_name_manually":   "Не используйте кнопки меню. Просто напишите своё имя.",
	"name_too_short":        "Имя слишком короткое. Введите полное имя.",
	"enter_phone":           "Введите номер телефона:",
	"enter_phone_manually":  "Не используйте кнопки меню. Просто напишите номер телефона.",
	"phone_too_short":       "Номер слишком короткий. Введите полный номер телефона.",
	"enter_address":         "Введите адрес доставки:",
	"enter_address_manually": "Не используйте кнопки меню. Просто напишите адрес.",
	"address_too_short":     "Адрес слишком короткий. Введите полный адрес.",
	"choose_delivery":       "Выберите способ получения: доставка или самовывоз.",
	"pickup_info":           "Вы можете забрать заказ самостоятельно по адресу: г. Ташкент, улица Аккурган, дом 23А. Время работы: 09:00 - 17:00.",
	"choose_time":           "Когда приготовить заказ? Как можно скорее или к конкретному времени?",
	"enter_specific_time":   "Введите время (например, 14:30):",
	"asap_option":           "Как можно скорее",
	"specific_time_option":  "К конкретному времени",
	"choose_payment":        "Выберите способ оплаты:",
	"choose_payment_cash":   "Оплата картой недоступна. Выберите оплату наличными.",
	"card_instructions":     "Оплата картой\n\nСумма к оплате: %d сум\nНомер карты: %s\n\nУ вас есть 10 минут на оплату!\n\nПосле перевода отправьте в этот чат сумму цифрами.",
	"payment_enter_digits":  "Введите сумму цифрами (например, 10000).",
	"payment_mismatch":      "Сумма не совпадает (%d ≠ %d). Попробуйте ещё раз.",
	"payment_expired":       "Время оплаты истекло (10 минут). Пожалуйста, выберите оплату наличными.",
	"payment_verified":      "Сумма оплаты подтверждена! Ожидайте подтверждения от администратора.",
	"summary_title":         "Ваш заказ:",
	"samsa_section":         "Самса:",
	"packaging_section":     "Упаковка:",
	"total_label":           "Сумма:",
	"name_label":            "Имя:",
	"phone_label":           "Телефон:",
	"address_label":         "Адрес:",
	"confirm_prompt":        "Подтвердить или Отменить?",
	"confirm_option":        "Подтвердить",
	"cancel_option":         "Отменить",
	"order_accepted":        "Ваш заказ принят! С вами скоро свяжутся.",
	"order_card_pending":    "Заказ отправлен на подтверждение администратором. Ожидайте проверки оплаты.",
	"order_payment_failed":  "Ошибка оплаты. Пожалуйста, попробуйте еще раз.",
	"order_cancelled":       "Заказ отменён.",
	"order_save_error":      "Произошла ошибка при сохранении заказа. Попробуйте еще раз.",
	"interruption_saved":    "Заказ приостановлен. Ваша корзина сохранена — продолжите оформление в любое время через /cart.",
	"interruption_exit":     "Вы вышли из режима заказа. Начните новый заказ, когда будете готовы!",
	"cart_summary_title":    "Ваша корзина:",
	"cart_empty":            "Корзина пуста.",
	"write_review_prompt":   "✍️ Напишите ваш отзыв и отправьте его одним сообщением:",
	"review_saved":          "Спасибо за ваш отзыв! 🙏",
	"review_save_error":     "Произошла ошибка при сохранении отзыва. Попробуйте еще раз.",
	"reviews_title":         "🗣 Последние отзывы:",
	"reviews_empty":         "Пока нет отзывов.",
	"review_anonymous":      "Гость",
	"status_preparing":      "Ваш заказ готовится!",
	"status_ready":          "Ваш заказ готов!",
	"status_delivered":      "Заказ доставлен!",
	"status_cancelled":      "Заказ отменен",
	"status_confirmed":      "Оплата подтверждена! Заказ принят в обработку.",
	"status_generic":        "Статус заказа: %s",
	"status_label":          "Статус:",
	"order_label":           "Заказ",
	"generic_retryable":     "Произошла ошибка. Попробуйте позже.",
}
